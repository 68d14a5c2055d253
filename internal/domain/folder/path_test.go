package folder

import (
	"testing"

	"github.com/garyjia/design-bureau/internal/domain/entity"
)

func TestPathFor(t *testing.T) {
	base := func() *entity.Contract {
		return &entity.Contract{
			AgentType:      "Partner Studio",
			Classification: entity.ClassificationIndividual,
			City:           "Moscow",
			Address:        "Tverskaya 12, apt 5",
			Area:           85.5,
			Status:         entity.StatusInProgress,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *entity.Contract)
		want   string
		wantOK bool
	}{
		{
			name:   "active individual",
			mutate: func(c *entity.Contract) {},
			want:   "Partner Studio/Individual/Moscow/Active/Tverskaya 12, apt 5 85.5 m2",
			wantOK: true,
		},
		{
			name:   "delivered goes to archive",
			mutate: func(c *entity.Contract) { c.Status = entity.StatusDelivered },
			want:   "Partner Studio/Individual/Moscow/Archive/Tverskaya 12, apt 5 85.5 m2",
			wantOK: true,
		},
		{
			name: "no agent",
			mutate: func(c *entity.Contract) {
				c.AgentType = ""
				c.Classification = entity.ClassificationTemplate
				c.Area = 120
				c.Status = entity.StatusUnderSupervision
			},
			want:   "Direct/Template/Moscow/Supervision/Tverskaya 12, apt 5 120 m2",
			wantOK: true,
		},
		{
			name:   "traversal removed",
			mutate: func(c *entity.Contract) { c.City = "../../etc"; c.Address = "a/b\\c" },
			want:   "Partner Studio/Individual/etc/Active/a b c 85.5 m2",
			wantOK: true,
		},
		{name: "no city", mutate: func(c *entity.Contract) { c.City = "  " }},
		{name: "no address", mutate: func(c *entity.Contract) { c.Address = "" }},
		{name: "unknown classification", mutate: func(c *entity.Contract) { c.Classification = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			got, ok := PathFor(c)
			if ok != tt.wantOK {
				t.Fatalf("PathFor() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("PathFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeSegment(t *testing.T) {
	tests := map[string]string{
		"  Lenina   st ":  "Lenina st",
		"..":              "",
		"a\x00b":          "ab",
		"....//x":         "x",
		"C:\\Users":       "C Users",
		"trailing dot.":   "trailing dot",
	}
	for in, want := range tests {
		if got := SanitizeSegment(in); got != want {
			t.Errorf("SanitizeSegment(%q) = %q, want %q", in, got, want)
		}
	}
}
