package models

// Frequency is the recurrence pattern of a cash flow.
//
// Values outside the known set are kept verbatim so that an account written by
// a newer engine survives a load/save round trip unchanged.
type Frequency string

// Known frequencies.
const (
	Once        Frequency = "Once"
	MonthStart  Frequency = "MonthStart"
	MonthEnd    Frequency = "MonthEnd"
	SemiMonthly Frequency = "SemiMonthly"
	Annually    Frequency = "Annually"
)

// Frequencies lists the known frequencies in display order.
var Frequencies = []Frequency{Once, MonthStart, MonthEnd, SemiMonthly, Annually}

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case Once, MonthStart, MonthEnd, SemiMonthly, Annually:
		return true
	}
	return false
}

// Label returns the short human-readable form used on cash-flow cards.
func (f Frequency) Label() string {
	switch f {
	case Once:
		return "One time"
	case MonthStart:
		return "Monthly (SOM)"
	case MonthEnd:
		return "Monthly (EOM)"
	case SemiMonthly:
		return "Semi-monthly"
	case Annually:
		return "Annually"
	default:
		return "Unknown"
	}
}
