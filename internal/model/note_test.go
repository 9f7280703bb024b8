package model

import "testing"

func TestValidStatus(t *testing.T) {
	for _, s := range []NoteStatus{StatusCreated, StatusWaiting, StatusApproved, StatusDisapproved} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%d) = false, want true", s)
		}
	}
	for _, s := range []NoteStatus{0, 5, -1} {
		if ValidStatus(s) {
			t.Errorf("ValidStatus(%d) = true, want false", s)
		}
	}
}

func TestCanTransitionIsPermissiveByDefault(t *testing.T) {
	valid := []NoteStatus{StatusCreated, StatusWaiting, StatusApproved, StatusDisapproved}
	for _, from := range valid {
		for _, to := range valid {
			if !CanTransition(from, to) {
				t.Errorf("CanTransition(%v, %v) = false, want true", from, to)
			}
		}
	}
	if CanTransition(StatusCreated, NoteStatus(7)) {
		t.Error("CanTransition to unknown status should be false")
	}
	if CanTransition(NoteStatus(0), StatusApproved) {
		t.Error("CanTransition from unknown status should be false")
	}
}

func TestStatusString(t *testing.T) {
	cases := map[NoteStatus]string{
		StatusCreated:     "Created",
		StatusWaiting:     "Waiting",
		StatusApproved:    "Approved",
		StatusDisapproved: "Disapproved",
		NoteStatus(42):    "Unknown",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", status, got, want)
		}
	}
}
