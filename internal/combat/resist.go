package combat

// ResistProfile is a target's percent mitigation per damage school, applied
// after absorb shields and before the HP write (spec.md §4.5.3). 0..1 scale.
type ResistProfile map[string]float64

// ApplyResist reduces amount by the target's resist percentage for school.
// Unknown schools resist 0%. Never returns a negative or larger-than-input
// value.
func ApplyResist(amount int32, school string, resist ResistProfile) int32 {
	if amount <= 0 || resist == nil {
		return amount
	}
	pct, ok := resist[school]
	if !ok || pct <= 0 {
		return amount
	}
	if pct > 1 {
		pct = 1
	}
	reduced := int32(float64(amount) * (1 - pct))
	if reduced < 0 {
		return 0
	}
	return reduced
}
