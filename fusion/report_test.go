package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeReportOffsets(t *testing.T) {
	type testCase struct {
		name        string
		report      []byte
		wantErrKind ErrKind
		wantErr     bool
		check       func(t *testing.T, s ControllerSnapshot)
	}

	cases := []testCase{
		{
			name:    "too short",
			report:  make([]byte, 4),
			wantErr: true,
			wantErrKind: MalformedReport,
		},
		{
			name:   "neutral sticks, no buttons",
			report: []byte{0x00, 0x80, 0x00, 0x80, 0x00, 0x80, 0x00, 0x80, 0x00, 0x80, 0x00, 0x00},
			check: func(t *testing.T, s ControllerSnapshot) {
				assert.EqualValues(t, 0, s.LX)
				assert.EqualValues(t, 0, s.LY)
				assert.EqualValues(t, 0, s.RX)
				assert.EqualValues(t, 0, s.RY)
				assert.EqualValues(t, 0, s.Buttons)
				assert.EqualValues(t, 0, s.DPad)
				assert.EqualValues(t, 0x80, s.MergedTriggerByte)
			},
		},
		{
			name:   "A and Start pressed, dpad up",
			report: []byte{0x00, 0x80, 0x00, 0x80, 0x00, 0x80, 0x00, 0x80, 0x00, 0x80, 0x81, 0x04},
			check: func(t *testing.T, s ControllerSnapshot) {
				assert.EqualValues(t, matchBitA|matchBitStart, s.Buttons)
				assert.EqualValues(t, dpadUp, s.DPad)
			},
		},
		{
			name:   "stick clicks",
			report: []byte{0x00, 0x80, 0x00, 0x80, 0x00, 0x80, 0x00, 0x80, 0x00, 0x80, 0x00, 0x03},
			check: func(t *testing.T, s ControllerSnapshot) {
				assert.EqualValues(t, matchBitLStick|matchBitRStick, s.Buttons)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := decodeReportOffsets(tc.report)
			if tc.wantErr {
				if assert.NotNil(t, err) {
					assert.Equal(t, tc.wantErrKind, err.Kind)
				}
				return
			}
			assert.Nil(t, err)
			tc.check(t, s)
		})
	}
}

func TestBiasedAxis(t *testing.T) {
	assert.EqualValues(t, 0, biasedAxis(0x8000))
	assert.EqualValues(t, -0x8000, biasedAxis(0x0000))
	assert.EqualValues(t, 0x7FFF, biasedAxis(0xFFFF))
}

func TestDecomposeMergedTrigger(t *testing.T) {
	type testCase struct {
		name       string
		b          byte
		wantLeft   int16
		wantRight  int16
	}
	cases := []testCase{
		{"neutral", 0x80, triggerMin, triggerMin},
		{"left fully pressed", 0x00, triggerMax, triggerMin},
		{"right near max", 0xFF, triggerMin, scaleMergedTrigger(0x7F)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, r := decomposeMergedTrigger(tc.b)
			assert.Equal(t, tc.wantLeft, l)
			assert.Equal(t, tc.wantRight, r)
		})
	}
}

func TestDpadPressed(t *testing.T) {
	assert.True(t, dpadPressed(dpadUp, ButtonDPadUp))
	assert.True(t, dpadPressed(dpadUpLeft, ButtonDPadUp))
	assert.True(t, dpadPressed(dpadUpLeft, ButtonDPadLeft))
	assert.False(t, dpadPressed(dpadUpLeft, ButtonDPadRight))
	assert.False(t, dpadPressed(0, ButtonDPadUp))
}
