package workflow

import (
	"errors"
	"reflect"
	"testing"

	"github.com/garyjia/design-bureau/internal/domain/entity"
)

func TestPipelineByName(t *testing.T) {
	if _, err := PipelineByName("kanban"); err == nil {
		t.Error("expected error for unknown pipeline")
	}

	main, err := PipelineByName(entity.PipelineMain)
	if err != nil {
		t.Fatal(err)
	}
	if main.Initial().Name != ColumnNew {
		t.Errorf("Initial() = %s, want %s", main.Initial().Name, ColumnNew)
	}
}

func TestPipeline_Column(t *testing.T) {
	main, _ := PipelineByName(entity.PipelineMain)
	sup, _ := PipelineByName(entity.PipelineSupervision)

	tests := []struct {
		name       string
		pipeline   *Pipeline
		column     string
		wantRole   string
		wantStatus State
		wantErr    bool
	}{
		{"measuring", main, ColumnMeasuring, entity.RoleSurveyor, StateInProgress, false},
		{"drafting", main, ColumnDrafting, entity.RoleDraftsperson, StateInProgress, false},
		{"approval", main, ColumnApproval, "", StateInProgress, false},
		{"supervision column", main, ColumnSupervision, "", StateUnderSupervision, false},
		{"visits", sup, ColumnVisits, entity.RoleSupervisor, "", false},
		{"visits not in main", main, ColumnVisits, "", "", true},
		{"design not in supervision", sup, ColumnDesign, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, err := tt.pipeline.Column(tt.column)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownColumn) {
					t.Errorf("Column() error = %v, want ErrUnknownColumn", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Column() unexpected error: %v", err)
			}
			if col.ExecutorRole != tt.wantRole {
				t.Errorf("ExecutorRole = %q, want %q", col.ExecutorRole, tt.wantRole)
			}
			if col.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", col.Status, tt.wantStatus)
			}
		})
	}
}

func TestPipeline_GroupStages(t *testing.T) {
	main, _ := PipelineByName(entity.PipelineMain)

	got := main.GroupStages("design")
	want := []string{ColumnPlanning, ColumnDesign}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GroupStages(design) = %v, want %v", got, want)
	}

	col, _ := main.Column(ColumnApproval)
	if !col.Approval {
		t.Error("approval column should carry the approval flag")
	}
}

func TestColumnForStatus(t *testing.T) {
	if c, ok := ColumnForStatus(StateUnderSupervision); !ok || c != ColumnSupervision {
		t.Errorf("ColumnForStatus(under_supervision) = %q, %v", c, ok)
	}
	if _, ok := ColumnForStatus(StateInProgress); ok {
		t.Error("in_progress has no single column")
	}
}
