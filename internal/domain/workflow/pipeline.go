package workflow

import (
	"fmt"

	"github.com/garyjia/design-bureau/internal/domain/entity"
)

// Column names of the main pipeline
const (
	ColumnNew         = "new"
	ColumnMeasuring   = "measuring"
	ColumnPlanning    = "planning"
	ColumnDesign      = "design"
	ColumnDrafting    = "drafting"
	ColumnApproval    = "approval"
	ColumnExecution   = "execution"
	ColumnDelivered   = "delivered"
	ColumnTerminated  = "terminated"
	ColumnSupervision = "supervision"
)

// Column names of the supervision pipeline
const (
	ColumnVisits = "visits"
	ColumnPaused = "paused"
	ColumnDone   = "done"
)

// Column describes one kanban column
type Column struct {
	Name         string
	Group        string
	ExecutorRole string
	Approval     bool
	Status       State // empty when the column does not drive contract status
}

// Pipeline is an ordered column vocabulary
type Pipeline struct {
	Name    string
	Columns []Column
	index   map[string]int
}

func newPipeline(name string, columns ...Column) *Pipeline {
	p := &Pipeline{Name: name, Columns: columns, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		p.index[c.Name] = i
	}
	return p
}

var (
	mainPipeline = newPipeline(entity.PipelineMain,
		Column{Name: ColumnNew, Group: "intake", Status: StateNew},
		Column{Name: ColumnMeasuring, Group: "survey", ExecutorRole: entity.RoleSurveyor, Status: StateInProgress},
		Column{Name: ColumnPlanning, Group: "design", ExecutorRole: entity.RoleDesigner, Status: StateInProgress},
		Column{Name: ColumnDesign, Group: "design", ExecutorRole: entity.RoleDesigner, Status: StateInProgress},
		Column{Name: ColumnDrafting, Group: "drafting", ExecutorRole: entity.RoleDraftsperson, Status: StateInProgress},
		Column{Name: ColumnApproval, Group: "approval", Approval: true, Status: StateInProgress},
		Column{Name: ColumnExecution, Group: "execution", ExecutorRole: entity.RoleDraftsperson, Status: StateInProgress},
		Column{Name: ColumnDelivered, Group: "closed", Status: StateDelivered},
		Column{Name: ColumnTerminated, Group: "closed", Status: StateTerminated},
		Column{Name: ColumnSupervision, Group: "supervision", Status: StateUnderSupervision},
	)

	supervisionPipeline = newPipeline(entity.PipelineSupervision,
		Column{Name: ColumnNew, Group: "intake"},
		Column{Name: ColumnVisits, Group: "visits", ExecutorRole: entity.RoleSupervisor},
		Column{Name: ColumnPaused, Group: "paused"},
		Column{Name: ColumnDone, Group: "done"},
	)
)

// PipelineByName returns the vocabulary for a pipeline
func PipelineByName(name string) (*Pipeline, error) {
	switch name {
	case entity.PipelineMain:
		return mainPipeline, nil
	case entity.PipelineSupervision:
		return supervisionPipeline, nil
	default:
		return nil, fmt.Errorf("unknown pipeline %q", name)
	}
}

// Column looks up a column by name
func (p *Pipeline) Column(name string) (Column, error) {
	i, ok := p.index[name]
	if !ok {
		return Column{}, fmt.Errorf("%w: %q in pipeline %s", ErrUnknownColumn, name, p.Name)
	}
	return p.Columns[i], nil
}

// Initial returns the first column of the pipeline
func (p *Pipeline) Initial() Column {
	return p.Columns[0]
}

// GroupStages returns the columns that share group, in pipeline order
func (p *Pipeline) GroupStages(group string) []string {
	var stages []string
	for _, c := range p.Columns {
		if c.Group == group {
			stages = append(stages, c.Name)
		}
	}
	return stages
}

// ColumnForStatus returns the main column a contract status maps onto.
// in_progress has no single column and returns false.
func ColumnForStatus(s State) (string, bool) {
	switch s {
	case StateNew:
		return ColumnNew, true
	case StateDelivered:
		return ColumnDelivered, true
	case StateTerminated:
		return ColumnTerminated, true
	case StateUnderSupervision:
		return ColumnSupervision, true
	}
	return "", false
}
