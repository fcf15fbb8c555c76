package result

import (
	"time"

	"github.com/signalnine/acckpi/internal/kpi"
	"github.com/signalnine/acckpi/internal/validation"
)

// EvalMeta is the stored outcome of evaluating one log.
type EvalMeta struct {
	ID          string               `json:"id"`
	Log         string               `json:"log"`
	Source      string               `json:"source"`
	EvaluatedAt time.Time            `json:"evaluated_at"`
	Params      kpi.Params           `json:"params"`
	Metrics     kpi.Metrics          `json:"metrics"`
	Verdicts    []validation.Verdict `json:"verdicts,omitempty"`
	Score       float64              `json:"score"`
	Passed      bool                 `json:"passed"`
}
