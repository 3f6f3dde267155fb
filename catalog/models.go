package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID is an entity identifier. Indexed documents sometimes carry numeric ids,
// so it decodes from either a JSON string or a JSON number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// StringList decodes from a JSON array of strings or from a single string.
// A single comma separated string is split into its elements. It is always
// encoded as an array.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*l = out
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// MarshalJSON always writes an array; a nil list is written as [].
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// PersonRef is a person embedded in a film document.
type PersonRef struct {
	ID   ID     `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

// Film is a film work as stored in the movies index.
type Film struct {
	ID           ID          `json:"id" msgpack:"id"`
	Title        string      `json:"title" msgpack:"title"`
	IMDbRating   float64     `json:"imdb_rating" msgpack:"imdb_rating"`
	Description  string      `json:"description,omitempty" msgpack:"description"`
	Genre        StringList  `json:"genre,omitempty" msgpack:"genre"`
	Director     StringList  `json:"director,omitempty" msgpack:"director"`
	ActorsNames  StringList  `json:"actors_names,omitempty" msgpack:"actors_names"`
	WritersNames StringList  `json:"writers_names,omitempty" msgpack:"writers_names"`
	Actors       []PersonRef `json:"actors,omitempty" msgpack:"actors"`
	Writers      []PersonRef `json:"writers,omitempty" msgpack:"writers"`
	Type         string      `json:"film_work_type,omitempty" msgpack:"film_work_type"`
}

// Genre is a genre document.
type Genre struct {
	ID          ID      `json:"id" msgpack:"id"`
	Title       string  `json:"title" msgpack:"title"`
	IMDbRating  float64 `json:"imdb_rating" msgpack:"imdb_rating"`
	Description string  `json:"description,omitempty" msgpack:"description"`
}

// Person is a person document.
type Person struct {
	ID      ID         `json:"id" msgpack:"id"`
	Name    string     `json:"name" msgpack:"name"`
	Role    string     `json:"role" msgpack:"role"`
	FilmIDs StringList `json:"film_ids" msgpack:"film_ids"`
}
