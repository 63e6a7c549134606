// Package validation checks inbound JSON payloads against embedded JSON
// Schemas and turns them into sanitized, typed inputs.
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://schemas.ettore.ai/"

// Shape names one payload schema
type Shape string

const (
	ShapeWebhookLead    Shape = "webhook_lead"
	ShapeManualLead     Shape = "manual_lead"
	ShapeLeadUpdate     Shape = "lead_update"
	ShapeGenerateDraft  Shape = "generate_draft"
	ShapeDraftEdit      Shape = "draft_edit"
	ShapeNotification   Shape = "notification"
	ShapeSettingsUpdate Shape = "settings_update"
	ShapeSignUp         Shape = "signup"
	ShapeLogin          Shape = "login"
	ShapeWebhookTest    Shape = "webhook_test"
)

var allShapes = []Shape{
	ShapeWebhookLead, ShapeManualLead, ShapeLeadUpdate, ShapeGenerateDraft, ShapeDraftEdit,
	ShapeNotification, ShapeSettingsUpdate, ShapeSignUp, ShapeLogin, ShapeWebhookTest,
}

// MsgInvalidBody is reported for bodies that are not a JSON object
const MsgInvalidBody = "body: must be a valid JSON object"

// emailPattern mirrors the pattern in defs.json
const emailPattern = `^[^\s@]+@[^\s@]+\.[^\s@]+$`

// Errors is a sorted, de-duplicated list of "<field>: <message>" strings
type Errors []string

func (e Errors) Error() string {
	return strings.Join(e, "; ")
}

// Validator holds one compiled schema per payload shape. It is safe for
// concurrent use.
type Validator struct {
	schemas map[Shape]*jsonschema.Schema
	printer *message.Printer
}

// New compiles every embedded schema
func New() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	files, err := fs.Glob(schemaFS, "schemas/*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	for _, file := range files {
		raw, err := schemaFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		if err := c.AddResource(schemaBaseURL+path.Base(file), doc); err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", file, err)
		}
	}

	v := &Validator{
		schemas: make(map[Shape]*jsonschema.Schema, len(allShapes)),
		printer: message.NewPrinter(language.English),
	}
	for _, shape := range allShapes {
		sch, err := c.Compile(schemaBaseURL + string(shape) + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", shape, err)
		}
		v.schemas[shape] = sch
	}

	return v, nil
}

// MustNew is New for program initialisation; the schemas are embedded so a
// failure is a build defect.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// decode parses raw, trims every string, validates it against the shape and,
// on success, unmarshals the trimmed document into out.
func (v *Validator) decode(shape Shape, raw []byte, out any) Errors {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return Errors{MsgInvalidBody}
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return Errors{MsgInvalidBody}
	}
	trimmed := trimStrings(obj)

	sch, ok := v.schemas[shape]
	if !ok {
		return Errors{fmt.Sprintf("body: unknown payload shape %q", shape)}
	}
	if err := sch.Validate(trimmed); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return Errors{"body: " + err.Error()}
		}
		return v.collect(verr)
	}

	normalized, err := json.Marshal(trimmed)
	if err != nil {
		return Errors{MsgInvalidBody}
	}
	if err := json.Unmarshal(normalized, out); err != nil {
		return Errors{MsgInvalidBody}
	}
	return nil
}

func trimStrings(v any) any {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		for k, item := range t {
			t[k] = trimStrings(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = trimStrings(item)
		}
		return t
	default:
		return v
	}
}

// collect flattens the error tree into field messages
func (v *Validator) collect(root *jsonschema.ValidationError) Errors {
	seen := map[string]bool{}
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		for _, msg := range v.describe(e) {
			seen[msg] = true
		}
	}
	walk(root)

	out := make(Errors, 0, len(seen))
	for msg := range seen {
		out = append(out, msg)
	}
	sort.Strings(out)
	if len(out) == 0 {
		out = Errors{"body: " + root.LocalizedError(v.printer)}
	}
	return out
}

func fieldName(loc []string, extra ...string) string {
	parts := append(append([]string{}, loc...), extra...)
	if len(parts) == 0 {
		return "body"
	}
	return strings.Join(parts, ".")
}

func (v *Validator) describe(e *jsonschema.ValidationError) []string {
	field := fieldName(e.InstanceLocation)

	switch k := e.ErrorKind.(type) {
	case *kind.Required:
		msgs := make([]string, 0, len(k.Missing))
		for _, m := range k.Missing {
			msgs = append(msgs, fieldName(e.InstanceLocation, m)+": is required")
		}
		return msgs
	case *kind.AdditionalProperties:
		msgs := make([]string, 0, len(k.Properties))
		for _, p := range k.Properties {
			msgs = append(msgs, fieldName(e.InstanceLocation, p)+": is not allowed")
		}
		return msgs
	case *kind.Type:
		return []string{field + ": must be " + typeList(k.Want)}
	case *kind.Format:
		return []string{field + ": " + formatMessage(k.Want)}
	case *kind.Pattern:
		if k.Want == emailPattern {
			return []string{field + ": " + formatMessage("email")}
		}
		return []string{field + ": has an invalid format"}
	case *kind.MinLength:
		if k.Want == 1 {
			return []string{field + ": must not be empty"}
		}
		return []string{fmt.Sprintf("%s: must be at least %d characters", field, k.Want)}
	case *kind.MaxLength:
		return []string{fmt.Sprintf("%s: must be at most %d characters", field, k.Want)}
	case *kind.MaxItems:
		return []string{fmt.Sprintf("%s: must have at most %d items", field, k.Want)}
	case *kind.Enum:
		want := make([]string, 0, len(k.Want))
		for _, w := range k.Want {
			want = append(want, fmt.Sprint(w))
		}
		return []string{field + ": must be one of: " + strings.Join(want, ", ")}
	case *kind.Minimum:
		f, _ := k.Want.Float64()
		return []string{fmt.Sprintf("%s: must be at least %g", field, f)}
	case *kind.Maximum:
		f, _ := k.Want.Float64()
		return []string{fmt.Sprintf("%s: must be at most %g", field, f)}
	case *kind.MinProperties:
		return []string{field + ": at least one field must be provided"}
	default:
		return []string{field + ": " + e.ErrorKind.LocalizedString(v.printer)}
	}
}

func typeList(want []string) string {
	out := make([]string, 0, len(want))
	for _, w := range want {
		switch w {
		case "null":
			continue
		case "object", "array", "integer":
			out = append(out, "an "+w)
		default:
			out = append(out, "a "+w)
		}
	}
	if len(out) == 0 {
		return "null"
	}
	return strings.Join(out, " or ")
}

func formatMessage(format string) string {
	switch format {
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	default:
		return "must be a valid " + format
	}
}
