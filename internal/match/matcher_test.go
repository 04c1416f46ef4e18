package match

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string][]string{
		"":                  {},
		"   ":               {},
		"Jane Doe":          {"jane", "doe"},
		"  Jane   Doe  ":    {"jane", "doe"},
		"JANE AMARA DOE":    {"jane", "amara", "doe"},
		"Ádám Kovács":       {"ádám", "kovács"},
		"jane\tdoe\nsmith ": {"jane", "doe", "smith"},
	}
	for in, want := range cases {
		got := Normalize(in)
		if len(got) != len(want) {
			t.Errorf("Normalize(%q) = %v; want %v", in, got, want)
			continue
		}
		for i := range got {
			if got[i] != want[i] {
				t.Errorf("Normalize(%q)[%d] = %q; want %q", in, i, got[i], want[i])
			}
		}
	}
}

func TestMatch_FirstLastOrderInsensitive(t *testing.T) {
	roster := []string{"John Smith", "Jane Amara Doe", "Mary Major"}

	// Reversed order still matches {first,last}.
	idx, ok := Match(roster, "Doe Jane")
	if !ok || idx != 1 {
		t.Fatalf("Match(Doe Jane) = (%d, %v); want (1, true)", idx, ok)
	}

	// Exact first+last.
	idx, ok = Match(roster, "jane doe")
	if !ok || idx != 1 {
		t.Fatalf("Match(jane doe) = (%d, %v); want (1, true)", idx, ok)
	}
}

func TestMatch_FirstMiddle(t *testing.T) {
	roster := []string{"Jane Amara Doe"}

	// Display name using first+middle matches the roster's {first,middle} set.
	if idx, ok := Match(roster, "Jane Amara"); !ok || idx != 0 {
		t.Fatalf("Match(Jane Amara) = (%d, %v); want (0, true)", idx, ok)
	}
}

func TestMatch_FullSet(t *testing.T) {
	roster := []string{"Jane Amara Doe"}

	if idx, ok := Match(roster, "Doe Amara Jane"); !ok || idx != 0 {
		t.Fatalf("Match(Doe Amara Jane) = (%d, %v); want (0, true)", idx, ok)
	}
}

func TestMatch_NotFound(t *testing.T) {
	roster := []string{"John Smith", "Jane Doe"}

	for _, name := range []string{"Unknown Person", "", "   ", "John", "Smith Doe"} {
		if _, ok := Match(roster, name); ok {
			t.Errorf("Match(%q) matched; want no match", name)
		}
	}
}

func TestMatch_FirstRowWins(t *testing.T) {
	// Two rows satisfy the policy; scan order decides.
	roster := []string{"Jane Doe", "Doe Jane"}
	if idx, ok := Match(roster, "Jane Doe"); !ok || idx != 0 {
		t.Fatalf("Match = (%d, %v); want (0, true)", idx, ok)
	}
}

func TestMatch_SingleTokenRosterName(t *testing.T) {
	// A one-token roster name can only match via its full set.
	roster := []string{"Cher"}
	if idx, ok := Match(roster, "Cher"); !ok || idx != 0 {
		t.Fatalf("Match(Cher) = (%d, %v); want (0, true)", idx, ok)
	}
	if _, ok := Match(roster, "Cher Bono"); ok {
		t.Fatalf("Match(Cher Bono) matched single-token roster name; want no match")
	}
}
