package extractidentity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// formFields turns Textract FORMS blocks into key/value pairs.
func formFields(blocks []types.Block) []FormField {
	byID := make(map[string]types.Block, len(blocks))
	for _, b := range blocks {
		if b.Id != nil {
			byID[*b.Id] = b
		}
	}

	var fields []FormField
	for _, b := range blocks {
		if b.BlockType != types.BlockTypeKeyValueSet || !hasEntity(b, types.EntityTypeKey) {
			continue
		}
		key := blockText(b, byID)
		value := ""
		for _, rel := range b.Relationships {
			if rel.Type != types.RelationshipTypeValue {
				continue
			}
			for _, id := range rel.Ids {
				if vb, ok := byID[id]; ok {
					value = strings.TrimSpace(value + " " + blockText(vb, byID))
				}
			}
		}
		fields = append(fields, FormField{Key: key, Value: value})
	}
	return fields
}

func hasEntity(b types.Block, entity types.EntityType) bool {
	for _, e := range b.EntityTypes {
		if e == entity {
			return true
		}
	}
	return false
}

func blockText(b types.Block, byID map[string]types.Block) string {
	words := []string{}
	for _, rel := range b.Relationships {
		if rel.Type != types.RelationshipTypeChild {
			continue
		}
		for _, id := range rel.Ids {
			child, ok := byID[id]
			if !ok {
				continue
			}
			if child.BlockType == types.BlockTypeWord && child.Text != nil {
				words = append(words, *child.Text)
			}
		}
	}
	return strings.Join(words, " ")
}

var (
	firstnameLabels = []string{"prénom", "prenom", "given name"}
	lastnameLabels  = []string{"nom", "nom de famille", "surname", "last name"}
	birthdateLabels = []string{"né(e) le", "ne(e) le", "né le", "date de naiss", "date of birth"}
)

func normalizeLabel(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.TrimRight(key, " :.")
}

func matchesPrefix(label string, candidates []string) bool {
	for _, c := range candidates {
		if strings.HasPrefix(label, c) {
			return true
		}
	}
	return false
}

func matchesExact(label string, candidates []string) bool {
	for _, c := range candidates {
		if label == c {
			return true
		}
	}
	return false
}

// identityFromFields picks the identity fields out of the document. The
// first occurrence of each label wins.
func identityFromFields(fields []FormField) (*Output, []string) {
	out := &Output{}
	for _, f := range fields {
		label := normalizeLabel(f.Key)
		value := strings.TrimSpace(f.Value)
		if value == "" {
			continue
		}
		switch {
		case len(out.Firstnames) == 0 && matchesPrefix(label, firstnameLabels):
			out.Firstnames = splitFirstnames(value)
		case out.Lastname == "" && matchesExact(label, lastnameLabels):
			out.Lastname = value
		case out.Birthdate == "" && matchesPrefix(label, birthdateLabels):
			if date, err := normalizeBirthdate(value); err == nil {
				out.Birthdate = date
			}
		}
	}

	missing := []string{}
	if len(out.Firstnames) == 0 {
		missing = append(missing, "firstname")
	}
	if out.Lastname == "" {
		missing = append(missing, "lastname")
	}
	if out.Birthdate == "" {
		missing = append(missing, "birthdate")
	}
	return out, missing
}

func splitFirstnames(value string) []string {
	parts := strings.Split(value, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

var digitGroups = regexp.MustCompile(`\d+`)

// normalizeBirthdate accepts "dd mm yyyy" with space, dot, slash or dash
// separators, or ISO "yyyy-mm-dd", and returns "yyyy-mm-dd".
func normalizeBirthdate(value string) (string, error) {
	groups := digitGroups.FindAllString(value, -1)
	if len(groups) != 3 {
		return "", fmt.Errorf("unrecognised date %q", value)
	}

	var year, month, day string
	if len(groups[0]) == 4 {
		year, month, day = groups[0], groups[1], groups[2]
	} else {
		day, month, year = groups[0], groups[1], groups[2]
	}
	if len(year) != 4 || len(month) > 2 || len(day) > 2 {
		return "", fmt.Errorf("unrecognised date %q", value)
	}

	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	date := fmt.Sprintf("%04d-%02d-%02d", y, m, d)
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", value, err)
	}
	return date, nil
}
