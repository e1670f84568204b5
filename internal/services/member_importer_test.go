package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ArowuTest/bmd-member-registry/internal/repositories"
	"github.com/ArowuTest/bmd-member-registry/internal/repositories/memory"
	"github.com/rs/zerolog"
)

func TestMemberImporter(t *testing.T) {
	repo := memory.NewMemberRepository(activeMember())
	imp := NewMemberImporter(repo, fixedClock(ruleNow), time.UTC, zerolog.Nop())

	csvData := strings.Join([]string{
		"Name,Country,Birth Date,Last Replacement,Visa Type,Tendency",
		"Grace Hopper,USA,12/09/1906,02/15/2024,Work,7",
		"ada  LOVELACE,UK,12/10/1815,02/01/2024,Work,3",
		"Alan Turing,UK,13/40/1912,02/01/2024,Study,2",
		"grace hopper,USA,12/09/1906,02/15/2024,Work,7",
		"Katherine Johnson,USA,08/26/1918,01/31/2024,,x",
	}, "\n")

	result, err := imp.Import(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Imported != 2 || result.Skipped != 2 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 2 imported, 2 skipped, 1 failed", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "line 4") {
		t.Fatalf("errors = %v, want one error for line 4", result.Errors)
	}

	members, _ := repo.FindAll(context.Background(), repositories.ByDueDate)
	if len(members) != 3 {
		t.Fatalf("stored %d members, want 3", len(members))
	}
	for _, m := range members {
		if m.Name == "Katherine Johnson" && m.Tendency != 0 {
			t.Fatalf("non-numeric tendency stored as %v, want 0", m.Tendency)
		}
	}
}

func TestMemberImporterRequiresNameColumn(t *testing.T) {
	imp := NewMemberImporter(memory.NewMemberRepository(), fixedClock(ruleNow), time.UTC, zerolog.Nop())
	if _, err := imp.Import(context.Background(), strings.NewReader("country,tendency\nUK,3\n")); err == nil {
		t.Fatal("expected an error for a header without a name column")
	}
	if _, err := imp.Import(context.Background(), strings.NewReader("")); err == nil {
		t.Fatal("expected an error for an empty file")
	}
}

func TestMemberImporterStopsOnStoreFailure(t *testing.T) {
	repo := memory.NewMemberRepository().WithWriteError(errors.New("disk full"))
	imp := NewMemberImporter(repo, fixedClock(ruleNow), time.UTC, zerolog.Nop())

	_, err := imp.Import(context.Background(), strings.NewReader("name,birthDate,lastReplacement\nGrace Hopper,12/09/1906,02/15/2024\n"))
	if err == nil {
		t.Fatal("expected the store failure to abort the import")
	}
}
