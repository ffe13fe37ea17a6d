package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDestination(t *testing.T) {
	tests := []struct {
		name string
		rail string
		dest string
		want bool
	}{
		{name: "valid card number", rail: RailCard, dest: "2377225624", want: true},
		{name: "invalid card number", rail: RailCard, dest: "2377225625", want: false},
		{name: "card with letters", rail: RailCard, dest: "12a4", want: false},
		{name: "valid wallet token", rail: RailWallet, dest: "0xDEADBEEF1234", want: true},
		{name: "wallet too short", rail: RailWallet, dest: "abc", want: false},
		{name: "wallet too long", rail: RailWallet, dest: strings.Repeat("a", 129), want: false},
		{name: "wallet with spaces", rail: RailWallet, dest: "some wallet", want: false},
		{name: "unknown rail", rail: "paper", dest: "whatever", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Destination(tt.rail, tt.dest))
		})
	}
}
