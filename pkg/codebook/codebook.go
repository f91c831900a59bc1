package codebook

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"patient-sim-be/pkg/token"
)

// Codebook loads the DDXPlus release codebooks and decodes evidence tokens
// ("E_91", "E_55_@_V_167", "E_56_@_5") into human-readable text.
//
// The evidence catalog on disk comes in several shapes depending on which
// release or preprocessing script produced it. Load normalizes all of them
// into the same lookup tables, so decoding behaves identically regardless
// of shape.

// Field-name aliases tolerated in row objects, in priority order.
var (
	codeAliases      = []string{"code_evidence", "code", "id"}
	displayAliases   = []string{"question_en", "name_en", "label_en", "question", "name", "label"}
	valueListAliases = []string{"possible-values", "possible_values", "values"}
	valueCodeAliases = []string{"code_value", "code", "id"}
	valueTextAliases = []string{"value_en", "label_en", "value", "label"}
)

// listKeys are tried in order when the top-level document is an object
// wrapping the row array.
var listKeys = []string{"evidences", "evidence", "data", "items"}

// FormatError reports an evidence file whose top-level shape matches none
// of the supported encodings. It is fatal at startup: no partial catalog
// is usable.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("codebook: unsupported format in %s: %s", e.Path, e.Reason)
}

// EvidenceRow is one normalized catalog entry.
type EvidenceRow struct {
	Code     string
	DataType string
	Question string
	Values   []ValueRow
}

// ValueRow is one allowed value for a categorical or ordinal evidence.
type ValueRow struct {
	Code  string
	Label string
}

type valueKey struct {
	head string
	code string
}

// Codebook holds the normalized catalogs and derived lookup tables.
type Codebook struct {
	evidences  []EvidenceRow
	conditions any // raw conditions payload, kept for reference only

	eMap map[string]EvidenceRow
	vMap map[valueKey]ValueRow
}

// Load reads both catalog files and builds the lookup tables. The
// conditions file is parsed with the same tolerant JSON/JSONL logic but its
// structure is opaque to this package.
func Load(evidencesPath, conditionsPath string) (*Codebook, error) {
	rows, err := loadRows(evidencesPath)
	if err != nil {
		return nil, err
	}

	conditions, err := loadAny(conditionsPath)
	if err != nil {
		return nil, err
	}

	cb := &Codebook{conditions: conditions}
	cb.buildMaps(rows)
	return cb, nil
}

// loadRows normalizes the evidence file into a list of raw row objects.
// Supported shapes: array; object wrapping the array under a known key;
// object keyed by head code; JSONL (tried only when whole-document parsing
// fails).
func loadRows(path string) ([]map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(raw))

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return parseLines(path, text)
	}

	switch v := doc.(type) {
	case []any:
		return asRows(v), nil
	case map[string]any:
		for _, key := range listKeys {
			if list, ok := v[key].([]any); ok {
				return asRows(list), nil
			}
		}
		// Object keyed by head code: {"E_91": {...}, ...}. The key backfills
		// a missing code on the row.
		rows := make([]map[string]any, 0, len(v))
		for code, item := range v {
			row, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if firstString(row, codeAliases) == "" {
				row["code_evidence"] = code
			}
			rows = append(rows, row)
		}
		return rows, nil
	default:
		return nil, &FormatError{Path: path, Reason: "top-level value is not a list, object, or JSONL"}
	}
}

func parseLines(path, text string) ([]map[string]any, error) {
	var rows []map[string]any
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, &FormatError{Path: path, Reason: "not valid JSON or JSONL"}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// loadAny reads a file as whole-document JSON, falling back to JSONL.
func loadAny(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(raw))

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err == nil {
		return doc, nil
	}

	var docs []any
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var obj any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return nil, &FormatError{Path: path, Reason: "not valid JSON or JSONL"}
		}
		docs = append(docs, obj)
	}
	return docs, nil
}

func asRows(list []any) []map[string]any {
	rows := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// buildMaps derives both lookup tables in one pass. Rows without a
// resolvable code are silently skipped. Duplicate head codes overwrite
// earlier entries: last write wins, which keeps the tie-break deterministic
// for any input order.
func (c *Codebook) buildMaps(rows []map[string]any) {
	c.eMap = make(map[string]EvidenceRow, len(rows))
	c.vMap = make(map[valueKey]ValueRow)
	c.evidences = make([]EvidenceRow, 0, len(rows))

	for _, raw := range rows {
		code := firstString(raw, codeAliases)
		if code == "" {
			continue
		}

		row := EvidenceRow{
			Code:     code,
			DataType: firstString(raw, []string{"data_type"}),
			Question: firstString(raw, displayAliases),
		}

		for _, alias := range valueListAliases {
			list, ok := raw[alias].([]any)
			if !ok {
				continue
			}
			for _, item := range list {
				vals, ok := item.(map[string]any)
				if !ok {
					continue
				}
				vcode := firstString(vals, valueCodeAliases)
				if vcode == "" {
					continue
				}
				value := ValueRow{
					Code:  vcode,
					Label: firstString(vals, valueTextAliases),
				}
				row.Values = append(row.Values, value)
				c.vMap[valueKey{head: code, code: vcode}] = value
			}
			break
		}

		c.eMap[code] = row
		c.evidences = append(c.evidences, row)
	}
}

// firstString returns the first alias present in the row as a string.
// Non-string scalars (numeric ids) are rendered with fmt.
func firstString(row map[string]any, aliases []string) string {
	for _, key := range aliases {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			return s
		}
		switch v.(type) {
		case map[string]any, []any:
			continue
		}
		return fmt.Sprint(v)
	}
	return ""
}

// Len reports how many evidence rows were indexed.
func (c *Codebook) Len() int {
	return len(c.eMap)
}

// DecodeToken converts an evidence token into readable text. It is total:
// unrecognized codes fall back to returning the input unchanged, so a
// user-facing answer can always be produced even for codebook gaps.
//
//	"E_91"          → "Do you have a fever?"
//	"E_55_@_V_167"  → "Where is the pain? → temple (L)"
//	"E_56_@_5"      → "How intense is the pain? → 5"
func (c *Codebook) DecodeToken(tok string) string {
	head := token.HeadOf(tok)
	tail := token.TailOf(tok)

	// Bare head: binary evidence.
	if tail == "" {
		row, ok := c.eMap[head]
		if !ok || row.Question == "" {
			return tok
		}
		return row.Question
	}

	row, found := c.eMap[head]

	// Categorical value code: needs both the head and the (head, value)
	// pair. A resolvable head with an unknown value drops through to the
	// verbatim rendering below.
	if token.IsCategoricalTail(tail) {
		if val, ok := c.vMap[valueKey{head: head, code: tail}]; found && ok {
			label := val.Label
			if label == "" {
				label = tail
			}
			return c.questionFor(row, head) + " → " + label
		}
	}

	// Numeric or otherwise unregistered tail: render verbatim.
	if found {
		return c.questionFor(row, head) + " → " + tail
	}
	return tok
}

func (c *Codebook) questionFor(row EvidenceRow, head string) string {
	if row.Question != "" {
		return row.Question
	}
	return head
}
