package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   LeadStatus
		wantOK bool
	}{
		{"new", StatusNew, true},
		{" Contacted ", StatusContacted, true},
		{"proposal", StatusProposal, true},
		{"proposal_sent", StatusProposal, true},
		{"won", StatusBooked, true},
		{"booked", StatusBooked, true},
		{"lost", StatusLost, true},
		{"archived", LeadStatus("archived"), false},
		{"", LeadStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeStatus(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestAcceptedStatusNames(t *testing.T) {
	names := AcceptedStatusNames()
	assert.Len(t, names, len(LeadStatuses())+2)
	assert.Contains(t, names, "proposal_sent")
	assert.Contains(t, names, "won")
	assert.Equal(t, "new", names[0])
}
