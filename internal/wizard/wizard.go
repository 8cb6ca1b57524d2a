// Package wizard holds the linear five-step VCF draft a user fills in before generation.
package wizard

import (
	"errors"
	"strconv"
	"strings"

	"github.com/m3rciful/vcfbot/internal/vcf"
)

var (
	// ErrInvalidNumber is returned when an integer step receives something else.
	ErrInvalidNumber = errors.New("wizard: not a valid number")
	// ErrEmptyText is returned when a text step receives only whitespace.
	ErrEmptyText = errors.New("wizard: empty text")
	// ErrUnexpectedInput is returned when the input kind does not match the step.
	ErrUnexpectedInput = errors.New("wizard: unexpected input for step")
)

// Step names double as FSM states in the session manager.
type Step string

const (
	StepFile        Step = "vcf.awaiting_file"
	StepContactName Step = "vcf.awaiting_contact_name"
	StepVCFName     Step = "vcf.awaiting_vcf_name"
	StepChunkSize   Step = "vcf.awaiting_chunk_size"
	StepStartIndex  Step = "vcf.awaiting_start_index"
	StepDone        Step = "vcf.done"
)

// Steps lists the input steps in order.
var Steps = []Step{StepFile, StepContactName, StepVCFName, StepChunkSize, StepStartIndex}

// Draft accumulates wizard answers. Fields are only populated by the step that owns them,
// so a later step is unreachable until every earlier field is set.
type Draft struct {
	Step        Step
	Numbers     []string
	ContactName string
	Stem        string
	ChunkSize   int
	StartIndex  int
}

// New starts a draft waiting for the number file.
func New() *Draft {
	return &Draft{Step: StepFile}
}

// ExpectsDocument reports whether the current step wants an uploaded file.
func (d *Draft) ExpectsDocument() bool { return d.Step == StepFile }

// Done reports whether every step has been answered.
func (d *Draft) Done() bool { return d.Step == StepDone }

// AcceptNumbers completes the file step.
func (d *Draft) AcceptNumbers(numbers []string) error {
	if d.Step != StepFile {
		return ErrUnexpectedInput
	}
	if len(numbers) == 0 {
		return vcf.ErrNoNumbers
	}
	d.Numbers = numbers
	d.Step = StepContactName
	return nil
}

// AcceptText feeds a text answer to the current step and advances on success.
// On error the step is left unchanged so the user can retry.
func (d *Draft) AcceptText(text string) error {
	text = strings.TrimSpace(text)
	switch d.Step {
	case StepContactName:
		if text == "" {
			return ErrEmptyText
		}
		d.ContactName = text
		d.Step = StepVCFName
	case StepVCFName:
		stem := vcf.CleanStem(text)
		if stem == "" {
			return ErrEmptyText
		}
		d.Stem = stem
		d.Step = StepChunkSize
	case StepChunkSize:
		n, err := parseInt(text)
		if err != nil {
			return err
		}
		if n <= 0 {
			return vcf.ErrInvalidChunkSize
		}
		d.ChunkSize = n
		d.Step = StepStartIndex
	case StepStartIndex:
		n, err := parseInt(text)
		if err != nil {
			return err
		}
		// the last contact index must still fit in an int
		if !vcf.IndexFits(n, len(d.Numbers)) {
			return ErrInvalidNumber
		}
		d.StartIndex = n
		d.Step = StepDone
	default:
		return ErrUnexpectedInput
	}
	return nil
}

// Options converts a finished draft into generator options.
func (d *Draft) Options() vcf.Options {
	return vcf.Options{
		ContactName: d.ContactName,
		Stem:        d.Stem,
		ChunkSize:   d.ChunkSize,
		StartIndex:  d.StartIndex,
	}
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrInvalidNumber
	}
	return n, nil
}
