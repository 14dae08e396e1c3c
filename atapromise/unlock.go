package atapromise

// The JEDEC unlock sequence: three writes that prime the chip to treat
// the next bus write as program data rather than an ordinary write.
const (
	unlockAddr1 = 0x555
	unlockVal1  = 0xaa
	unlockAddr2 = 0x2aa
	unlockVal2  = 0x55
	unlockAddr3 = 0x555
	unlockVal3  = 0xa0
)

type unlockState int

const (
	unlockIdle unlockState = iota
	unlockSawFirst
	unlockSawSecond
	unlockExpectData
)

// unlockTracker watches the write stream for the unlock sequence so the
// write following it can be recognized as the data phase of a program
// operation. It is purely an annotation: every write is forwarded to the
// hardware regardless of tracker state.
type unlockTracker struct {
	state unlockState
}

// observe records one bus write and reports whether that write is the
// data phase of a program sequence. A write that does not match the next
// expected unlock step resets the tracker, re-evaluating the write as a
// possible new first step.
func (t *unlockTracker) observe(addr uint32, val uint8) bool {
	if t.state == unlockExpectData {
		t.state = unlockIdle
		if addr == unlockAddr1 && val == unlockVal1 {
			t.state = unlockSawFirst
		}
		return true
	}

	switch {
	case t.state == unlockIdle && addr == unlockAddr1 && val == unlockVal1:
		t.state = unlockSawFirst
	case t.state == unlockSawFirst && addr == unlockAddr2 && val == unlockVal2:
		t.state = unlockSawSecond
	case t.state == unlockSawSecond && addr == unlockAddr3 && val == unlockVal3:
		t.state = unlockExpectData
	case addr == unlockAddr1 && val == unlockVal1:
		t.state = unlockSawFirst
	default:
		t.state = unlockIdle
	}
	return false
}
