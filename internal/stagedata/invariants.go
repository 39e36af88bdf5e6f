package stagedata

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// LineTotal is price × quantity
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// AddonsTotal sums priceChange × quantity over all addons
func AddonsTotal(addons []Addon) decimal.Decimal {
	total := decimal.Zero
	for _, a := range addons {
		total = total.Add(LineTotal(a.PriceChange, a.Quantity))
	}
	return total
}

// FinalTotal is the original position total plus all addons
func FinalTotal(d *TechnicalSpecificationData) decimal.Decimal {
	base := decimal.Zero
	if d.OriginalPosition != nil {
		base = LineTotal(d.OriginalPosition.UnitPrice, d.OriginalPosition.Quantity)
	}
	return base.Add(AddonsTotal(d.Addons))
}

// Budget derives actual, remaining and the over-budget flag from the planned
// amount and the procurement items
func Budget(planned decimal.Decimal, items []ProcurementItem) BudgetInfo {
	actual := decimal.Zero
	for _, item := range items {
		actual = actual.Add(item.Cost)
	}
	return BudgetInfo{
		Planned:    planned,
		Actual:     actual,
		Remaining:  planned.Sub(actual),
		OverBudget: actual.GreaterThan(planned) && planned.IsPositive(),
	}
}

// OverallProgress is the rounded mean task progress, 0 without tasks
func OverallProgress(tasks []ProductionTask) int {
	if len(tasks) == 0 {
		return 0
	}
	sum := 0
	for _, t := range tasks {
		sum += t.Progress
	}
	return int(math.Round(float64(sum) / float64(len(tasks))))
}

func ProductionCompleted(progress int) bool {
	return progress == 100
}

func ReadyForInstallation(progress int, qualityApproved bool) bool {
	return ProductionCompleted(progress) && qualityApproved
}

// ApprovalOverallStatus: an open revision request wins, then all documents
// approved, otherwise pending
func ApprovalOverallStatus(d *ApprovalData) ApprovalStatus {
	for _, r := range d.RevisionRequests {
		if !r.Resolved {
			return ApprovalStatusRequiresRevision
		}
	}
	if len(d.Documents) == 0 {
		return ApprovalStatusPending
	}
	for _, doc := range d.Documents {
		if doc.Status != DocumentStatusApproved {
			return ApprovalStatusPending
		}
	}
	return ApprovalStatusApproved
}

// InstallationProgress is the rounded share of checklist items done
func InstallationProgress(checklist []ChecklistItem) int {
	if len(checklist) == 0 {
		return 0
	}
	done := 0
	for _, c := range checklist {
		if c.Done {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(len(checklist))))
}

// Recompute overwrites every derived field of the payload from its inputs and
// replaces nil collections with empty ones
func Recompute(p Payload) {
	switch d := p.(type) {
	case *MeasurementData:
		d.Media = orEmpty(d.Media)
		d.LinkedItemIDs = orEmpty(d.LinkedItemIDs)
	case *TechnicalSpecificationData:
		if d.OriginalPosition != nil {
			d.OriginalPosition.Total = LineTotal(d.OriginalPosition.UnitPrice, d.OriginalPosition.Quantity)
		}
		d.Addons = orEmpty(d.Addons)
		for i := range d.Addons {
			d.Addons[i].Total = LineTotal(d.Addons[i].PriceChange, d.Addons[i].Quantity)
		}
		d.AddonsTotal = AddonsTotal(d.Addons)
		d.FinalTotal = FinalTotal(d)
	case *ConstructorDocumentationData:
		d.HardwareSpec = orEmpty(d.HardwareSpec)
		d.CuttingSpec = orEmpty(d.CuttingSpec)
		d.Links = orEmpty(d.Links)
	case *ApprovalData:
		d.Documents = orEmpty(d.Documents)
		for i := range d.Documents {
			if d.Documents[i].Status == "" {
				d.Documents[i].Status = DocumentStatusPending
			}
		}
		d.ClientComments = orEmpty(d.ClientComments)
		d.ApprovalHistory = orEmpty(d.ApprovalHistory)
		d.RevisionRequests = orEmpty(d.RevisionRequests)
		d.OverallStatus = ApprovalOverallStatus(d)
	case *ProcurementData:
		d.ProcurementItems = orEmpty(d.ProcurementItems)
		d.BudgetInfo = Budget(d.BudgetInfo.Planned, d.ProcurementItems)
	case *ProductionData:
		d.CuttingSpecification = orEmpty(d.CuttingSpecification)
		d.AllocatedMaterials = orEmpty(d.AllocatedMaterials)
		d.Tasks = orEmpty(d.Tasks)
		d.OverallProgress = OverallProgress(d.Tasks)
		d.ProductionCompleted = ProductionCompleted(d.OverallProgress)
		d.ReadyForInstallation = ReadyForInstallation(d.OverallProgress, d.QualityApproved)
	case *InstallationData:
		d.Crew = orEmpty(d.Crew)
		d.Checklist = orEmpty(d.Checklist)
		d.Progress = InstallationProgress(d.Checklist)
	case *GenericData:
		if d.Fields == nil {
			d.Fields = map[string]string{}
		}
	default:
		panic(fmt.Sprintf("stagedata: unhandled payload %T", p))
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
