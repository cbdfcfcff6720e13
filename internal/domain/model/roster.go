package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Roster maps participant names to participants and iterates in insertion
// order. Replacing an existing name keeps its original position.
type Roster struct {
	order  []string
	byName map[string]*Participant
}

// NewRoster returns an empty roster.
func NewRoster(ps ...Participant) *Roster {
	r := &Roster{byName: make(map[string]*Participant)}
	for _, p := range ps {
		r.Put(p)
	}
	return r
}

// Len returns the number of participants.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Has reports whether name is rostered.
func (r *Roster) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.byName[name]
	return ok
}

// Lookup returns the stored participant for in-place mutation by the owner.
func (r *Roster) Lookup(name string) (*Participant, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.byName[name]
	return p, ok
}

// Put inserts or replaces a participant (last write wins, no merge).
func (r *Roster) Put(p Participant) {
	if r.byName == nil {
		r.byName = make(map[string]*Participant)
	}
	c := p.Clone()
	if _, ok := r.byName[p.Name]; !ok {
		r.order = append(r.order, p.Name)
	}
	r.byName[p.Name] = &c
}

// Names returns participant names in roster order.
func (r *Roster) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Participants returns copies of all participants in roster order.
func (r *Roster) Participants() []Participant {
	if r == nil {
		return nil
	}
	out := make([]Participant, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].Clone())
	}
	return out
}

// Clone deep-copies the roster.
func (r *Roster) Clone() *Roster {
	return NewRoster(r.Participants()...)
}

// MarshalJSON writes a JSON object keyed by name, in roster order.
func (r *Roster) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.byName[name])
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keyed by name, keeping document order.
// A JSON null leaves an empty roster.
func (r *Roster) UnmarshalJSON(data []byte) error {
	fresh, err := decodeRoster(json.NewDecoder(bytes.NewReader(data)), true)
	if err != nil {
		return err
	}
	*r = *fresh
	return nil
}

// DecodeRoster reads an exported document. Unlike UnmarshalJSON it rejects
// null and anything that is not a single JSON object.
func DecodeRoster(rd io.Reader) (*Roster, error) {
	dec := json.NewDecoder(rd)
	roster, err := decodeRoster(dec, false)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after document", ErrMalformedDocument)
	}
	return roster, nil
}

func decodeRoster(dec *json.Decoder, allowNull bool) (*Roster, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if tok == nil && allowNull {
		return NewRoster(), nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected an object of participants", ErrMalformedDocument)
	}

	roster := NewRoster()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		name, _ := tok.(string)

		var rec record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformedDocument, name, err)
		}
		p, err := rec.participant(name)
		if err != nil {
			return nil, err
		}
		roster.Put(p)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return roster, nil
}
