package job

import "testing"

func TestValidJobType(t *testing.T) {
	cases := []struct {
		category Category
		jobType  JobType
		want     bool
	}{
		{CategoryProject, TypeConstruction, true},
		{CategoryProject, TypeRenovation, true},
		{CategoryProject, TypeRepair, false},
		{CategoryJob, TypeRepair, true},
		{CategoryJob, TypePlumbing, true},
		{CategoryJob, TypeConstruction, false},
		{Category("GIG"), TypeRepair, false},
	}

	for _, tc := range cases {
		if got := ValidJobType(tc.category, tc.jobType); got != tc.want {
			t.Errorf("ValidJobType(%s, %s) = %v, want %v", tc.category, tc.jobType, got, tc.want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusOpen, StatusInProgress, StatusCompleted, StatusCancelled} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%s) = false", s)
		}
	}
	if ValidStatus("DRAFT") {
		t.Error("ValidStatus(DRAFT) = true")
	}
}
