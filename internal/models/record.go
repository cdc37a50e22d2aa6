package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownShape is returned by DecodeRecord for JSON that is neither a
// list item nor a detail item.
var ErrUnknownShape = errors.New("unknown job record shape")

type RecordKind int

const (
	InvalidRecord RecordKind = iota
	SummaryRecord
	DetailRecord
)

func (k RecordKind) String() string {
	switch k {
	case SummaryRecord:
		return "summary"
	case DetailRecord:
		return "detail"
	default:
		return "invalid"
	}
}

// Record holds exactly one of the two job shapes. Kind is set by the
// constructors and never guessed afterwards.
type Record struct {
	Kind    RecordKind
	Summary *JobListItem
	Detail  *JobDetailItem
}

func FromSummary(item JobListItem) Record {
	return Record{Kind: SummaryRecord, Summary: &item}
}

func FromDetail(item JobDetailItem) Record {
	return Record{Kind: DetailRecord, Detail: &item}
}

func FromSummaries(items []JobListItem) []Record {
	records := make([]Record, len(items))
	for i, item := range items {
		records[i] = FromSummary(item)
	}
	return records
}

func FromDetails(items []JobDetailItem) []Record {
	records := make([]Record, len(items))
	for i, item := range items {
		records[i] = FromDetail(item)
	}
	return records
}

// Identify returns the job id and title. ok is false when the record has no
// usable identifier.
func (r Record) Identify() (id, title string, ok bool) {
	switch r.Kind {
	case SummaryRecord:
		if r.Summary == nil || r.Summary.EncryptJobID == "" {
			return "", "", false
		}
		return r.Summary.EncryptJobID, r.Summary.JobName, true
	case DetailRecord:
		if r.Detail == nil || r.Detail.JobInfo.EncryptID == "" {
			return "", "", false
		}
		return r.Detail.JobInfo.EncryptID, r.Detail.JobInfo.JobName, true
	}
	return "", "", false
}

// Requirements are the free-text fields the filters look at.
type Requirements struct {
	Degree     string
	Salary     string
	Experience string
}

func (r Record) Requirements() Requirements {
	switch {
	case r.Kind == SummaryRecord && r.Summary != nil:
		return Requirements{
			Degree:     r.Summary.JobDegree,
			Salary:     r.Summary.SalaryDesc,
			Experience: r.Summary.JobExperience,
		}
	case r.Kind == DetailRecord && r.Detail != nil:
		return Requirements{
			Degree:     r.Detail.JobInfo.DegreeName,
			Salary:     r.Detail.JobInfo.SalaryDesc,
			Experience: r.Detail.JobInfo.ExperienceName,
		}
	}
	return Requirements{}
}

// DecodeRecord inspects untyped JSON (for example a file written by an older
// run) and builds the matching variant. A summary carries both encryptJobId
// and jobName at the top level; a detail nests jobInfo.encryptId.
func DecodeRecord(raw json.RawMessage) (Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}

	_, hasID := fields["encryptJobId"]
	_, hasName := fields["jobName"]
	if hasID && hasName {
		var item JobListItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return Record{}, fmt.Errorf("decode list item: %w", err)
		}
		return FromSummary(item), nil
	}

	if info, ok := fields["jobInfo"]; ok {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(info, &nested); err == nil {
			if _, ok := nested["encryptId"]; ok {
				var item JobDetailItem
				if err := json.Unmarshal(raw, &item); err != nil {
					return Record{}, fmt.Errorf("decode detail item: %w", err)
				}
				return FromDetail(item), nil
			}
		}
	}

	return Record{}, ErrUnknownShape
}

// DecodeRecords decodes a JSON array and drops elements of unknown shape.
func DecodeRecords(data []byte) ([]Record, int, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, 0, fmt.Errorf("decode records: %w", err)
	}

	records := make([]Record, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		rec, err := DecodeRecord(raw)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// Summaries returns the list items held by records, in order.
func Summaries(records []Record) []JobListItem {
	out := make([]JobListItem, 0, len(records))
	for _, r := range records {
		if r.Kind == SummaryRecord && r.Summary != nil {
			out = append(out, *r.Summary)
		}
	}
	return out
}

// Details returns the detail items held by records, in order.
func Details(records []Record) []JobDetailItem {
	out := make([]JobDetailItem, 0, len(records))
	for _, r := range records {
		if r.Kind == DetailRecord && r.Detail != nil {
			out = append(out, *r.Detail)
		}
	}
	return out
}
