package timex

import (
	"testing"
	"time"
)

func TestTime_UnixMethods(t *testing.T) {
	// Create a fixed time
	// 创建一个固定时间
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tt := Time(now)

	if tt.Unix() != now.Unix() {
		t.Errorf("Unix() = %v, want %v", tt.Unix(), now.Unix())
	}
	if tt.UnixMilli() != now.UnixMilli() {
		t.Errorf("UnixMilli() = %v, want %v", tt.UnixMilli(), now.UnixMilli())
	}
	if tt.UnixMicro() != now.UnixMicro() {
		t.Errorf("UnixMicro() = %v, want %v", tt.UnixMicro(), now.UnixMicro())
	}
	if tt.UnixNano() != now.UnixNano() {
		t.Errorf("UnixNano() = %v, want %v", tt.UnixNano(), now.UnixNano())
	}
}

func TestStampRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"zero", time.Time{}, ""},
		{"utc", time.Date(2024, 9, 1, 8, 30, 5, 0, time.UTC), "20240901083005"},
		{"offset", time.Date(2024, 9, 1, 10, 30, 5, 0, time.FixedZone("CEST", 2*3600)), "20240901083005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatStamp(tt.in)
			if got != tt.want {
				t.Fatalf("FormatStamp() = %q, want %q", got, tt.want)
			}
			back, err := ParseStamp(got)
			if err != nil {
				t.Fatalf("ParseStamp() error: %v", err)
			}
			if !back.Equal(tt.in) {
				t.Errorf("ParseStamp() = %v, want %v", back, tt.in)
			}
		})
	}
}

func TestTime_ScanString(t *testing.T) {
	var tt Time
	if err := tt.Scan("2024-01-01 12:00:00"); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if tt.Time().Hour() != 12 {
		t.Errorf("Scan() hour = %d, want 12", tt.Time().Hour())
	}
	if err := tt.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
}
