package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Activity is one stored ActivityStreams record.
// The payload is the source of truth; ID and Derived are projections of it.
type Activity struct {
	// ID is the value at $.id of the payload.
	ID string

	// Payload is the raw JSON object as imported.
	Payload json.RawMessage

	// Derived holds the scalar projections of the payload.
	Derived DerivedFields
}

// DerivedFields are the scalar values extracted from an activity payload.
// An empty string means the path was absent or null.
type DerivedFields struct {
	Published          string // $.published
	Type               string // $.type
	Actor              string // $.actor
	ObjectPublished    string // $.object.published
	ObjectType         string // $.object.type
	ObjectURL          string // $.object.url
	ObjectContent      string // $.object.content
	ObjectAttributedTo string // $.object.attributedTo
	ObjectInReplyTo    string // $.object.inReplyTo
}

// SearchEntry is the shadow of an activity kept in the full-text index.
type SearchEntry struct {
	ID            string
	Actor         string
	Type          string
	Published     string
	ObjectContent string
}

// jsonObject holds the members of a decoded JSON object. Keys are matched
// exactly, as SQLite JSON paths are case sensitive.
type jsonObject map[string]json.RawMessage

// ParseActivity decodes a payload into an Activity.
// It returns ErrInvalidInput when the payload is not a JSON object or repeats
// a key within any object, and ErrMissingID when $.id is absent, empty or not
// a string.
func ParseActivity(payload []byte) (*Activity, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		return nil, fmt.Errorf("%w: activity is not a JSON object", ErrInvalidInput)
	}

	var obj jsonObject
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	// SQLite's json_extract reads the first of repeated keys and the map
	// above keeps the last, so the two would disagree on derived values.
	if err := checkUniqueKeys(json.NewDecoder(bytes.NewReader(payload))); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	derived, err := obj.derive()
	if err != nil {
		return nil, err
	}

	var id string
	if raw, ok := obj["id"]; !ok || json.Unmarshal(raw, &id) != nil || id == "" {
		return nil, ErrMissingID
	}

	return &Activity{
		ID:      id,
		Payload: json.RawMessage(payload),
		Derived: derived,
	}, nil
}

// ExtractDerived computes the derived fields of a payload using the same
// rendering SQLite's json_extract produces when stored in a TEXT column.
func ExtractDerived(payload []byte) (DerivedFields, error) {
	var obj jsonObject
	if err := json.Unmarshal(payload, &obj); err != nil {
		return DerivedFields{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return obj.derive()
}

func (obj jsonObject) derive() (DerivedFields, error) {
	d := DerivedFields{
		Published: scalarText(obj["published"]),
		Type:      scalarText(obj["type"]),
		Actor:     scalarText(obj["actor"]),
	}

	// A non-object $.object (e.g. a bare URL) has no nested fields.
	nested := bytes.TrimSpace(obj["object"])
	if len(nested) > 0 && nested[0] == '{' {
		var o jsonObject
		if err := json.Unmarshal(nested, &o); err != nil {
			return DerivedFields{}, fmt.Errorf("%w: object: %w", ErrInvalidInput, err)
		}
		d.ObjectPublished = scalarText(o["published"])
		d.ObjectType = scalarText(o["type"])
		d.ObjectURL = scalarText(o["url"])
		d.ObjectContent = scalarText(o["content"])
		d.ObjectAttributedTo = scalarText(o["attributedTo"])
		d.ObjectInReplyTo = scalarText(o["inReplyTo"])
	}

	return d, nil
}

// checkUniqueKeys consumes one JSON value from dec and fails if any object
// in it has the same key twice.
func checkUniqueKeys(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch tok {
	case json.Delim('{'):
		seen := make(map[string]struct{})
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			key, ok := tok.(string)
			if !ok {
				return fmt.Errorf("unexpected token %v", tok)
			}
			if _, dup := seen[key]; dup {
				return fmt.Errorf("duplicate key %q", key)
			}
			seen[key] = struct{}{}
			if err := checkUniqueKeys(dec); err != nil {
				return err
			}
		}
	case json.Delim('['):
		for dec.More() {
			if err := checkUniqueKeys(dec); err != nil {
				return err
			}
		}
	default:
		return nil
	}

	// Closing delimiter.
	_, err = dec.Token()
	return err
}

// SearchEntry returns the index entry this activity must have.
func (a *Activity) SearchEntry() SearchEntry {
	return SearchEntry{
		ID:            a.ID,
		Actor:         a.Derived.Actor,
		Type:          a.Derived.Type,
		Published:     a.Derived.Published,
		ObjectContent: a.Derived.ObjectContent,
	}
}

// PublishedAt parses the published timestamp, if any.
func (a *Activity) PublishedAt() (time.Time, bool) {
	if a.Derived.Published == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, a.Derived.Published)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// scalarText renders a JSON value as text.
// Strings are unquoted, booleans become 1 or 0, numbers keep their literal
// text and objects or arrays are compacted.
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case 'n':
		return ""
	case 't':
		return "1"
	case 'f':
		return "0"
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return string(raw)
		}
		return buf.String()
	default:
		return string(raw)
	}
}

// StoreStats counts stored activities and search index entries.
// The two are equal whenever no mutation is in flight.
type StoreStats struct {
	Activities   int
	IndexEntries int
}

// Consistent reports whether every activity has exactly one index entry.
func (s StoreStats) Consistent() bool {
	return s.Activities == s.IndexEntries
}
