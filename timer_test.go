package v32

import (
	"testing"
	"time"
)

func fixedNow(year, yearDay, hour, min, sec int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.January, 1, hour, min, sec, 0, time.UTC).AddDate(0, 0, yearDay-1)
	}
}

func TestTimerResetSnapshotsClock(t *testing.T) {
	timer := &Timer{now: fixedNow(2026, 45, 12, 30, 15)}
	timer.Reset()

	date, _ := timer.ReadPort(TimerPortCurrentDate)
	wantDate := uint32(2026)<<16 | 45
	if date.AsUint() != wantDate {
		t.Fatalf("CurrentDate = %#x, want %#x", date.AsUint(), wantDate)
	}

	tm, _ := timer.ReadPort(TimerPortCurrentTime)
	wantTime := uint32(12*3600 + 30*60 + 15)
	if tm.AsUint() != wantTime {
		t.Fatalf("CurrentTime = %d, want %d", tm.AsUint(), wantTime)
	}
}

func TestTimerTickAndChangeFrame(t *testing.T) {
	timer := NewTimer()
	timer.Reset()

	timer.Tick()
	timer.Tick()
	cc, _ := timer.ReadPort(TimerPortCycleCounter)
	if cc.AsUint() != 2 {
		t.Fatalf("CycleCounter = %d, want 2", cc.AsUint())
	}

	timer.ChangeFrame()
	fc, _ := timer.ReadPort(TimerPortFrameCounter)
	if fc.AsUint() != 1 {
		t.Fatalf("FrameCounter = %d, want 1", fc.AsUint())
	}
	cc, _ = timer.ReadPort(TimerPortCycleCounter)
	if cc.AsUint() != 0 {
		t.Fatalf("CycleCounter after ChangeFrame = %d, want 0", cc.AsUint())
	}
}

func TestTimerRejectsWrites(t *testing.T) {
	timer := NewTimer()
	if timer.WritePort(TimerPortCurrentDate, 1) {
		t.Fatalf("Timer ports should reject CPU writes")
	}
}

func TestTimerSetCurrentDateTime(t *testing.T) {
	timer := NewTimer()
	timer.SetCurrentDate(2030, 200)
	timer.SetCurrentTime(1, 2, 3)

	date, _ := timer.ReadPort(TimerPortCurrentDate)
	if date.AsUint() != uint32(2030)<<16|200 {
		t.Fatalf("SetCurrentDate did not take effect")
	}
	tm, _ := timer.ReadPort(TimerPortCurrentTime)
	if tm.AsUint() != uint32(1*3600+2*60+3) {
		t.Fatalf("SetCurrentTime did not take effect")
	}
}
