package services

import "testing"

func TestLookupAgencyExactKey(t *testing.T) {
	tests := []struct {
		symbol   string
		fullName string
	}{
		{"OU", "Orthodox Union"},
		{"ou", "Orthodox Union"},
		{"STAR-K", "Star-K Kosher Certification"},
		{"  KMD  ", "Kosher Maguén David (México)"},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			agency, found := LookupAgency(tt.symbol)
			if !found {
				t.Fatalf("expected %q to resolve", tt.symbol)
			}
			if agency.FullName != tt.fullName {
				t.Errorf("expected %q, got %q", tt.fullName, agency.FullName)
			}
		})
	}
}

func TestLookupAgencyPartialMatch(t *testing.T) {
	tests := []struct {
		symbol   string
		fullName string
	}{
		{"OU Pareve", "Orthodox Union"},
		{"OU-D", "Orthodox Union"},
		{"Orthodox Union", "Orthodox Union"},
		{"The Orthodox Union", "Orthodox Union"},
		{"Kof-K Dairy", "Kof-K Kosher Supervision"},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			agency, found := LookupAgency(tt.symbol)
			if !found {
				t.Fatalf("expected %q to resolve", tt.symbol)
			}
			if agency.FullName != tt.fullName {
				t.Errorf("expected %q, got %q", tt.fullName, agency.FullName)
			}
		})
	}
}

func TestLookupAgencyDeclarationOrderBreaksTies(t *testing.T) {
	// "OU OK" substring-matches both of the first two entries; the earlier
	// entry must win.
	agency, found := LookupAgency("OU OK")
	if !found {
		t.Fatal("expected a match")
	}
	if agency.Key != "OU" {
		t.Errorf("expected first-declared key OU to win, got %s", agency.Key)
	}
}

func TestLookupAgencyMiss(t *testing.T) {
	tests := []string{"", "   ", "Ninguno", "Sello Casero", "XYZ"}

	for _, symbol := range tests {
		if agency, found := LookupAgency(symbol); found {
			t.Errorf("expected %q to miss, resolved to %s", symbol, agency.Key)
		}
	}
}

func TestAgenciesReturnsCopy(t *testing.T) {
	list := Agencies()
	if len(list) != len(agencyRegistry) {
		t.Fatalf("expected %d agencies, got %d", len(agencyRegistry), len(list))
	}

	list[0].Key = "MUTATED"
	if agencyRegistry[0].Key == "MUTATED" {
		t.Error("Agencies must return a copy, not the backing slice")
	}
}
