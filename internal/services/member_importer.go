package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ArowuTest/bmd-member-registry/internal/repositories"
	"github.com/ArowuTest/bmd-member-registry/internal/utils"
	"github.com/rs/zerolog"
)

// ImportResult summarises one CSV import
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// importColumns maps accepted header spellings to registration fields.
var importColumns = map[string]string{
	"name":                       "name",
	"fullname":                   "name",
	"country":                    "country",
	"birthdate":                  "birthDate",
	"lastreplacement":            "lastReplacement",
	"lastbatteryreplacementdate": "lastReplacement",
	"visatype":                   "visaType",
	"visa":                       "visaType",
	"tendency":                   "tendency",
}

// MemberImporter bulk-registers members from CSV through the same
// validation and derivation as the registration form.
type MemberImporter struct {
	repo   repositories.MemberRepository
	clock  Clock
	loc    *time.Location
	logger zerolog.Logger
}

// NewMemberImporter creates a new MemberImporter
func NewMemberImporter(repo repositories.MemberRepository, clock Clock, loc *time.Location, logger zerolog.Logger) *MemberImporter {
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &MemberImporter{repo: repo, clock: clock, loc: loc, logger: logger}
}

// Import reads a CSV with a header row. Rows whose normalized name already
// exists, in the store or earlier in the file, are skipped. Invalid rows are
// counted and reported but do not stop the import.
func (imp *MemberImporter) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("CSV file is empty")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	index, err := mapImportHeader(header)
	if err != nil {
		return nil, err
	}

	existing, err := imp.repo.FindAll(ctx, repositories.ByDueDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing members: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		if key := m.NormalizedName(); key != "" {
			seen[key] = struct{}{}
		}
	}

	result := &ImportResult{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		in := RegistrationInput{
			Name:            field(record, index, "name"),
			Country:         field(record, index, "country"),
			BirthDate:       field(record, index, "birthDate"),
			LastReplacement: field(record, index, "lastReplacement"),
			VisaType:        field(record, index, "visaType"),
			Tendency:        field(record, index, "tendency"),
		}
		key := utils.NormalizeName(in.Name)
		if _, dup := seen[key]; dup && key != "" {
			result.Skipped++
			continue
		}

		member, err := BuildMember(in, imp.clock(), imp.loc)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %s", line, errorMessage(err)))
			continue
		}
		id, err := imp.repo.Create(ctx, member)
		if err != nil {
			return result, fmt.Errorf("line %d: failed to create member: %w", line, err)
		}
		seen[key] = struct{}{}
		result.Imported++
		imp.logger.Debug().Int("line", line).Str("member", id.Hex()).Msg("member imported")
	}

	imp.logger.Info().
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("member import finished")
	return result, nil
}

func mapImportHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.TrimSpace(h)))
		key = strings.TrimPrefix(key, "\ufeff")
		if name, ok := importColumns[key]; ok {
			if _, dup := index[name]; !dup {
				index[name] = i
			}
		}
	}
	if _, ok := index["name"]; !ok {
		return nil, errors.New("CSV header must include a name column")
	}
	return index, nil
}

func field(record []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func errorMessage(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}
