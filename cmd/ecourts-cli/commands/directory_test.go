package commands

import (
	"testing"

	"ecourts-backend/lib/scrapers/ecourts/markup"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	options := []markup.Option{
		{Value: "3", Text: "Karnataka"},
		{Value: "1", Text: "Maharashtra"},
		{Value: "29", Text: "Madhya Pradesh"},
	}

	testCases := []struct {
		arg      string
		expected string
		fails    bool
	}{
		{arg: "3", expected: "Karnataka"},
		{arg: "karnataka", expected: "Karnataka"},
		{arg: "Maharastra", expected: "Maharashtra"},
		{arg: "madhya  pradesh", expected: "Madhya Pradesh"},
		{arg: "Kerala", fails: true},
		{arg: "", fails: true},
	}

	for _, test := range testCases {
		option, err := resolve(options, test.arg, "state")
		if test.fails {
			require.Error(t, err, test.arg)
			continue
		}
		require.NoError(t, err, test.arg)
		require.Equal(t, test.expected, option.Text, test.arg)
	}
}
