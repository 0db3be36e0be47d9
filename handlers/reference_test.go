package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tlgayhan/pedi-mvp/reference"
	"github.com/tlgayhan/pedi-mvp/reference/entities"
	"github.com/tlgayhan/pedi-mvp/validation"
)

func TestListDrugs(t *testing.T) {
	router := newLoadedRouter(t)

	tests := []struct {
		name        string
		path        string
		expectedIDs []string
	}{
		{"all drugs in order", "/v1/drugs", []string{"paracetamol", "ibuprofen", "amoxicillin", "ceftriaxone"}},
		{"by id substring", "/v1/drugs?q=cef", []string{"ceftriaxone"}},
		{"by name, any casing", "/v1/drugs?q=AMOKS", []string{"amoxicillin"}},
		{"Turkish dotted capital", "/v1/drugs?q=%C4%B0bu", []string{"ibuprofen"}},
		{"no match", "/v1/drugs?q=warfarin", []string{}},
		{"markup is just text", "/v1/drugs?q=%3Cscript%3E", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, router, tt.path)
			if rr.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
			}

			var drugs []entities.Drug
			decodeBody(t, rr, &drugs)

			if len(drugs) != len(tt.expectedIDs) {
				t.Fatalf("Expected %d drugs, got %d", len(tt.expectedIDs), len(drugs))
			}
			for i, id := range tt.expectedIDs {
				if drugs[i].ID != id {
					t.Errorf("drugs[%d]: expected %q, got %q", i, id, drugs[i].ID)
				}
			}
		})
	}
}

func TestListDrugsRejectsQuery(t *testing.T) {
	router := newLoadedRouter(t)

	rr := get(t, router, "/v1/drugs?q="+strings.Repeat("a", validation.MaxFindingLength+1))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

func TestGetDrug(t *testing.T) {
	router := newLoadedRouter(t)

	tests := []struct {
		name         string
		id           string
		expectedCode int
	}{
		{"found", "paracetamol", http.StatusOK},
		{"case-insensitive", "Ibuprofen", http.StatusOK},
		{"not found", "warfarin", http.StatusNotFound},
		{"invalid id", "para.cetamol", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, router, "/v1/drugs/"+tt.id)
			if rr.Code != tt.expectedCode {
				t.Fatalf("Expected %d, got %d: %s", tt.expectedCode, rr.Code, rr.Body.String())
			}
			if tt.expectedCode != http.StatusOK {
				return
			}

			var drug entities.Drug
			decodeBody(t, rr, &drug)
			if len(drug.Routes) == 0 || len(drug.Routes[0].ConcentrationsMgPerMl) == 0 {
				t.Errorf("Expected routes with concentrations, got %+v", drug)
			}
		})
	}
}

func TestListToxidromes(t *testing.T) {
	router := newLoadedRouter(t)

	rr := get(t, router, "/v1/toxidromes")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body toxidromesResponse
	decodeBody(t, rr, &body)

	if len(body.Toxidromes) < 6 {
		t.Errorf("Expected at least 6 toxidromes, got %d", len(body.Toxidromes))
	}
	if len(body.RedFlags) == 0 {
		t.Error("Expected red flags")
	}
	if body.Source != reference.SourceEmbedded {
		t.Errorf("Expected embedded source, got %q", body.Source)
	}
}
