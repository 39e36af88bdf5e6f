package stagedata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json names so field errors match what clients sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NewPayload returns the empty payload for a stage type
func NewPayload(t domain.StageType) (Payload, error) {
	switch t {
	case domain.StageTypeMeasurement:
		return &MeasurementData{}, nil
	case domain.StageTypeTechnicalSpecification:
		return &TechnicalSpecificationData{}, nil
	case domain.StageTypeConstructorDocumentation:
		return &ConstructorDocumentationData{}, nil
	case domain.StageTypeApproval:
		return &ApprovalData{}, nil
	case domain.StageTypeProcurement:
		return &ProcurementData{}, nil
	case domain.StageTypeProduction:
		return &ProductionData{}, nil
	case domain.StageTypeInstallation:
		return &InstallationData{}, nil
	case domain.StageTypeGeneric:
		return &GenericData{}, nil
	default:
		return nil, domain.NewValidationError("stageType", fmt.Sprintf("unknown stage type %q", t))
	}
}

// Empty returns a recomputed empty payload for a stage type
func Empty(t domain.StageType) (Payload, error) {
	p, err := NewPayload(t)
	if err != nil {
		return nil, err
	}
	Recompute(p)
	return p, nil
}

// Decode parses raw type_data for a stage type. Unknown fields, wrong types
// and failed validation are rejected; derived fields are recomputed.
// Empty input decodes to the empty payload.
func Decode(t domain.StageType, raw []byte) (Payload, error) {
	p, err := NewPayload(t)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		Recompute(p)
		return p, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, decodeError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, domain.NewValidationError("typeData", "unexpected data after JSON object")
	}

	if err := Validate(p); err != nil {
		return nil, err
	}
	Recompute(p)
	return p, nil
}

// Encode recomputes the derived fields and serializes the payload
func Encode(p Payload) ([]byte, error) {
	if p == nil {
		return nil, domain.NewValidationError("typeData", "payload is required")
	}
	Recompute(p)
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s data: %w", p.StageType(), err)
	}
	return data, nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "typeData"
		}
		return domain.NewValidationError(field, fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value))
	case errors.As(err, &syntaxErr):
		return domain.NewValidationError("typeData", fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset))
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		name := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return domain.NewValidationError(name, "unknown field")
	default:
		return domain.NewValidationError("typeData", err.Error())
	}
}

// Validate checks struct tags and the rules tags cannot express
func Validate(p Payload) error {
	verr := &domain.ValidationError{}

	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate %s data: %w", p.StageType(), err)
		}
		for _, fe := range fieldErrs {
			verr.Add(fieldPath(fe.Namespace()), fieldMessage(fe))
		}
	}

	switch d := p.(type) {
	case *MeasurementData:
		nonNegative(verr, "cost", d.Cost)
	case *TechnicalSpecificationData:
		if d.OriginalPosition != nil {
			nonNegative(verr, "originalPosition.unitPrice", d.OriginalPosition.UnitPrice)
		}
		seen := make(map[string]bool, len(d.Addons))
		for i, a := range d.Addons {
			if seen[a.ID] {
				verr.Add(fmt.Sprintf("addons[%d].id", i), "Duplicate addon id")
			}
			seen[a.ID] = true
		}
	case *ConstructorDocumentationData:
	case *ApprovalData:
		seen := make(map[string]bool, len(d.Documents))
		for i, doc := range d.Documents {
			if seen[doc.ID] {
				verr.Add(fmt.Sprintf("documents[%d].id", i), "Duplicate document id")
			}
			seen[doc.ID] = true
		}
	case *ProcurementData:
		nonNegative(verr, "budgetInfo.planned", d.BudgetInfo.Planned)
		for i, item := range d.ProcurementItems {
			nonNegative(verr, fmt.Sprintf("procurementItems[%d].cost", i), item.Cost)
		}
	case *ProductionData:
	case *InstallationData:
	case *GenericData:
	default:
		panic(fmt.Sprintf("stagedata: unhandled payload %T", p))
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// CheckImmutable rejects edits that rewrite data which may only be set once
// or only appended to
func CheckImmutable(prev, next Payload) error {
	if prev == nil || next == nil {
		return nil
	}
	if prev.StageType() != next.StageType() {
		return domain.NewValidationError("stageType", "stage type of the data cannot change")
	}

	switch p := prev.(type) {
	case *TechnicalSpecificationData:
		n := next.(*TechnicalSpecificationData)
		if p.OriginalPosition == nil {
			return nil
		}
		if n.OriginalPosition == nil {
			return domain.NewValidationError("originalPosition", "Original position cannot be removed once set")
		}
		if p.OriginalPosition.Name != n.OriginalPosition.Name ||
			!p.OriginalPosition.UnitPrice.Equal(n.OriginalPosition.UnitPrice) ||
			p.OriginalPosition.Quantity != n.OriginalPosition.Quantity {
			return domain.NewValidationError("originalPosition", "Original position is immutable; record changes as addons")
		}
	case *ApprovalData:
		n := next.(*ApprovalData)
		if len(n.ApprovalHistory) < len(p.ApprovalHistory) {
			return domain.NewValidationError("approvalHistory", "Approval history is append-only")
		}
		for i, ev := range p.ApprovalHistory {
			if !ev.equal(n.ApprovalHistory[i]) {
				return domain.NewValidationError(fmt.Sprintf("approvalHistory[%d]", i), "Approval history is append-only")
			}
		}
	}
	return nil
}

func (e ApprovalEvent) equal(o ApprovalEvent) bool {
	return e.Action == o.Action &&
		e.DocumentID == o.DocumentID &&
		e.Actor == o.Actor &&
		e.Comment == o.Comment &&
		e.At.Equal(o.At)
}

func nonNegative(verr *domain.ValidationError, field string, v decimal.Decimal) {
	if v.IsNegative() {
		verr.Add(field, "Must be greater than or equal to 0")
	}
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}
