package models

import (
	"encoding/json"
	"strings"
)

// GenreKind tags the representation a GenreRef arrived in.
type GenreKind string

const (
	GenreKindID         GenreKind = "id"         // bare numeric provider id
	GenreKindName       GenreKind = "name"       // bare genre name string
	GenreKindEmbedded   GenreKind = "embedded"   // serialized object embedded in a string
	GenreKindStructured GenreKind = "structured" // {id, name} object
)

// GenreRef is the tagged union for the heterogeneous genre representations
// providers emit. Detail payloads carry {id,name} objects, list payloads carry
// bare ids, and some stored records carry names or serialized objects.
// Consumers resolve refs through the genres package rather than inspecting
// the fields directly.
type GenreRef struct {
	Kind GenreKind
	ID   int64
	Name string
	Raw  string // original string for the embedded kind
}

// GenreID returns an id-kind ref.
func GenreID(id int64) GenreRef {
	return GenreRef{Kind: GenreKindID, ID: id}
}

// GenreName returns a name-kind ref.
func GenreName(name string) GenreRef {
	return GenreRef{Kind: GenreKindName, Name: name}
}

// GenreStructured returns a structured-kind ref.
func GenreStructured(id int64, name string) GenreRef {
	return GenreRef{Kind: GenreKindStructured, ID: id, Name: name}
}

type structuredGenre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts any of the wire shapes: a number, an {id,name} object,
// a string holding a serialized object, or a plain name string.
func (g *GenreRef) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*g = GenreRef{}
		return nil
	}

	switch trimmed[0] {
	case '{':
		var s structuredGenre
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*g = GenreRef{Kind: GenreKindStructured, ID: s.ID, Name: s.Name}
		return nil
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if strings.HasPrefix(strings.TrimSpace(raw), "{") {
			*g = GenreRef{Kind: GenreKindEmbedded, Raw: raw}
			return nil
		}
		*g = GenreRef{Kind: GenreKindName, Name: raw}
		return nil
	default:
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*g = GenreRef{Kind: GenreKindID, ID: id}
		return nil
	}
}

// MarshalJSON writes the most specific shape the ref holds.
func (g GenreRef) MarshalJSON() ([]byte, error) {
	switch g.Kind {
	case GenreKindStructured:
		return json.Marshal(structuredGenre{ID: g.ID, Name: g.Name})
	case GenreKindEmbedded:
		return json.Marshal(g.Raw)
	case GenreKindName:
		return json.Marshal(g.Name)
	default:
		return json.Marshal(g.ID)
	}
}
