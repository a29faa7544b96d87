package domain

import (
	"fmt"
	"math"
)

// AcademicLevel is one of the fixed levels offered by the wizard.
type AcademicLevel string

const (
	LevelCollege    AcademicLevel = "college"
	LevelHighSchool AcademicLevel = "highschool"
	LevelUniversity AcademicLevel = "university"
	LevelMaster     AcademicLevel = "master"
	LevelPhD        AcademicLevel = "phd"
)

// UrgencyTier is a named delivery deadline carrying a price multiplier.
type UrgencyTier string

const (
	UrgencySixHours        UrgencyTier = "six_hours"
	UrgencyTwelveHours     UrgencyTier = "twelve_hours"
	UrgencyTwentyFourHours UrgencyTier = "twenty_four_hours"
	UrgencyFortyEightHours UrgencyTier = "forty_eight_hours"
	UrgencyThreeDays       UrgencyTier = "three_days"
	UrgencySevenDays       UrgencyTier = "seven_days"
	UrgencyFourteenDays    UrgencyTier = "fourteen_days"
)

// PriceBreakdown is the output of the pricing engine.
type PriceBreakdown struct {
	BasePrice         float64 `json:"base_price"`
	UrgencyMultiplier float64 `json:"urgency_multiplier"`
	FinalPrice        float64 `json:"final_price"`
}

// InstructionFileSubject is stored as subject when instructions came as a file.
const InstructionFileSubject = "(Fichier uploadé)"

// MaxPages bounds the page count of one order.
const MaxPages = 500

// ValidPages reports whether n pages can be ordered.
func ValidPages(n int) bool {
	return n >= 1 && n <= MaxPages
}

// OrderDraft accumulates what the wizard has collected so far.
// Every field is optional until Validate is called at confirmation.
type OrderDraft struct {
	Subject               *string         `json:"subject,omitempty"`
	InstructionFilePath   *string         `json:"instruction_file_path,omitempty"`
	Level                 *AcademicLevel  `json:"academic_level,omitempty"`
	Pages                 *int            `json:"length_pages,omitempty"`
	Urgency               *UrgencyTier    `json:"urgency,omitempty"`
	Pricing               *PriceBreakdown `json:"pricing,omitempty"`
	ReferralCode          *string         `json:"referral_code,omitempty"`
	ReferralDiscount      float64         `json:"referral_discount,omitempty"`
	SuggestedReferralCode *string         `json:"suggested_referral_code,omitempty"`
	OrderNumber           *string         `json:"order_number,omitempty"`
}

// TruncateFrom forgets everything collected at or after step, so that
// re-entering a step through back recomputes what depends on it.
func (d *OrderDraft) TruncateFrom(step Step) {
	rank, ok := stepRank[step]
	if !ok || rank < 0 {
		return
	}
	if rank <= stepRank[StepHome] {
		*d = OrderDraft{}
		return
	}
	if rank <= stepRank[StepEnterSubject] {
		d.Subject = nil
		d.InstructionFilePath = nil
	}
	if rank <= stepRank[StepSelectLevel] {
		d.Level = nil
	}
	if rank <= stepRank[StepEnterLength] {
		d.Pages = nil
	}
	if rank <= stepRank[StepSelectUrgency] {
		d.Urgency = nil
		d.Pricing = nil
	}
	if rank <= stepRank[StepEnterReferralCode] {
		d.ReferralCode = nil
		d.ReferralDiscount = 0
	}
}

// ApplyReferral records a validated code and the discount it grants.
func (d *OrderDraft) ApplyReferral(code string, discount float64) {
	d.ReferralCode = &code
	d.ReferralDiscount = discount
}

// HasReferral reports whether a referral discount is on the draft.
func (d *OrderDraft) HasReferral() bool {
	return d.ReferralCode != nil
}

// FinalPrice is the priced total minus any referral discount, never negative.
func (d *OrderDraft) FinalPrice() float64 {
	if d.Pricing == nil {
		return 0
	}
	return math.Max(0, RoundMoney(d.Pricing.FinalPrice-d.ReferralDiscount))
}

// Validate checks the draft is complete enough to become an order.
func (d *OrderDraft) Validate() error {
	switch {
	case d.Subject == nil && d.InstructionFilePath == nil:
		return fmt.Errorf("%w: missing subject or instructions", ErrIncompleteDraft)
	case d.Level == nil:
		return fmt.Errorf("%w: missing academic level", ErrIncompleteDraft)
	case d.Pages == nil || !ValidPages(*d.Pages):
		return fmt.Errorf("%w: missing page count", ErrIncompleteDraft)
	case d.Urgency == nil:
		return fmt.Errorf("%w: missing urgency", ErrIncompleteDraft)
	case d.Pricing == nil:
		return fmt.Errorf("%w: missing pricing", ErrIncompleteDraft)
	case d.ReferralDiscount < 0 || d.ReferralDiscount > d.Pricing.FinalPrice:
		return fmt.Errorf("%w: referral discount out of range", ErrIncompleteDraft)
	}
	return nil
}
