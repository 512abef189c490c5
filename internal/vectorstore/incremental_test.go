package vectorstore

import "testing"

func TestListsForFixedProfiles(t *testing.T) {
	cases := []struct {
		profile Profile
		want    int
	}{
		{ProfileSmall, 10},
		{ProfileMedium, 100},
		{ProfileLarge, 1000},
	}
	for _, c := range cases {
		if got := listsFor(c.profile, 500000); got != c.want {
			t.Fatalf("listsFor(%s): got %d, want %d", c.profile, got, c.want)
		}
	}
}

func TestListsForAutoDerivesFromRowCount(t *testing.T) {
	if got := listsFor(ProfileAuto, 10000); got != 100 {
		t.Fatalf("listsFor(auto, 10000): got %d, want 100", got)
	}
}

func TestListsForAutoFloorsSmallCollections(t *testing.T) {
	if got := listsFor(ProfileAuto, 4); got != 10 {
		t.Fatalf("listsFor(auto, 4): got %d, want floor of 10", got)
	}
}

func TestListsForAutoCapsHugeCollections(t *testing.T) {
	if got := listsFor(ProfileAuto, 100_000_000); got != 2000 {
		t.Fatalf("listsFor(auto, 100M): got %d, want cap of 2000", got)
	}
}

func TestListsForUnknownProfileFallsBackToAuto(t *testing.T) {
	if got := listsFor(Profile("bogus"), 10000); got != 100 {
		t.Fatalf("listsFor(bogus, 10000): got %d, want auto-derived 100", got)
	}
}
