package cycle

// GenericTip is returned for weeks without a table entry.
const GenericTip = "Continue taking care of yourself and your growing baby!"

var pregnancyTips = map[int]string{
	1:  "Your baby is the size of a poppy seed. Start taking folic acid if you haven't already.",
	4:  "Your baby's heart is starting to beat! Schedule your first prenatal appointment.",
	8:  "Your baby is now the size of a grape. Morning sickness may be starting.",
	12: "End of first trimester! Risk of miscarriage significantly decreases.",
	16: "You might start feeling baby's movements soon!",
	20: "Halfway point! Time for your anatomy scan.",
	24: "Your baby's hearing is developing. Play some music!",
	28: "Third trimester begins. Your baby's eyes can now open and close.",
	32: "Your baby is gaining weight rapidly now.",
	36: "Your baby is considered full-term soon. Start preparing for delivery.",
	40: "Your due date is here! Labor could start any day.",
}

var dangerSigns = []string{
	"Severe abdominal pain",
	"Heavy bleeding",
	"Severe headaches",
	"Vision changes",
}

// TipKey returns the table key for a gestational week: the largest multiple
// of 4 not above week, except that weeks 1-3 use the week-1 entry.
// ok is false when the table has no entry for the key.
func TipKey(week int) (int, bool) {
	if week < 1 {
		return 0, false
	}
	key := (week / 4) * 4
	if key == 0 {
		key = 1
	}
	if _, ok := pregnancyTips[key]; !ok {
		return key, false
	}
	return key, true
}

// PregnancyTip returns the advisory tip for a gestational week.
func PregnancyTip(week int) string {
	key, ok := TipKey(week)
	if !ok {
		return GenericTip
	}
	return pregnancyTips[key]
}

// TipWeeks returns the table keys in ascending order.
func TipWeeks() []int {
	return []int{1, 4, 8, 12, 16, 20, 24, 28, 32, 36, 40}
}

// DangerSigns lists symptoms that need immediate medical attention during
// pregnancy. The returned slice is a copy.
func DangerSigns() []string {
	out := make([]string, len(dangerSigns))
	copy(out, dangerSigns)
	return out
}
