package progress

import "testing"

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want Mode
	}{
		{"plain", ModePlain},
		{"json", ModeJSON},
		{"auto", ModeAuto},
		{"", ModeAuto},
		{"fancy", ModeAuto},
	}
	for _, tc := range cases {
		if got := ParseMode(tc.in); got != tc.want {
			t.Errorf("ParseMode(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestIndicatorCountsToTotal(t *testing.T) {
	ind := New("test", 5, ModeJSON)
	for i := 0; i < 5; i++ {
		ind.Increment()
	}
	ind.Finish()

	if ind.current != 5 {
		t.Errorf("current = %d, want 5", ind.current)
	}
}

func TestIndicatorConcurrentIncrements(t *testing.T) {
	ind := New("test", 100, ModeJSON)
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			for j := 0; j < 25; j++ {
				ind.Increment()
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	if ind.current != 100 {
		t.Errorf("current = %d, want 100", ind.current)
	}
}

func TestIndicatorZeroTotal(t *testing.T) {
	ind := New("empty", 0, ModeJSON)
	ind.Finish() // must not divide by zero or panic
}
