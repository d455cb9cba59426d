package search

import "testing"

func TestUnwrapJSONP(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`cb([1,2])`, `[1,2]`, true},
		{`cb([1,2]);`, `[1,2]`, true},
		{" /**/ jQuery123_456( {\"a\":1} ) ;\n", `{"a":1}`, true},
		{`foo.bar$_9([])`, `[]`, true},
		{`[{"name":"github"}]`, `[{"name":"github"}]`, true},
		{`null`, `null`, true},
		{`alert(1)+x`, ``, false},
		{`(1)`, ``, false},
		{`cb(`, ``, false},
		{`x y([])`, ``, false},
		{``, ``, false},
	}
	for _, tc := range cases {
		got, err := unwrapJSONP([]byte(tc.in))
		if tc.ok && err != nil {
			t.Errorf("unwrapJSONP(%q) error: %v", tc.in, err)
			continue
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("unwrapJSONP(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if string(got) != tc.want {
			t.Errorf("unwrapJSONP(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}
