package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "fanswitch.db"))
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNetworkStateRoundTrip(t *testing.T) {
	s := newTestStore(t)

	want := &NetworkState{
		PanID:     0x1A62,
		ExtPanID:  "0102030405060708",
		Channel:   15,
		ShortAddr: 0x4F21,
		Joined:    true,
		JoinedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := s.SaveNetworkState(want); err != nil {
		t.Fatalf("SaveNetworkState: %v", err)
	}

	got, err := s.GetNetworkState()
	if err != nil {
		t.Fatalf("GetNetworkState: %v", err)
	}
	if got.PanID != want.PanID || got.ExtPanID != want.ExtPanID ||
		got.Channel != want.Channel || got.ShortAddr != want.ShortAddr || !got.Joined {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if !got.JoinedAt.Equal(want.JoinedAt) {
		t.Errorf("JoinedAt = %v, want %v", got.JoinedAt, want.JoinedAt)
	}
}

func TestGetNetworkStateNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetNetworkState()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestClearNetworkState(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveNetworkState(&NetworkState{Joined: true}); err != nil {
		t.Fatalf("SaveNetworkState: %v", err)
	}
	if err := s.ClearNetworkState(); err != nil {
		t.Fatalf("ClearNetworkState: %v", err)
	}
	if _, err := s.GetNetworkState(); !errors.Is(err, ErrNotFound) {
		t.Errorf("after clear, err = %v, want ErrNotFound", err)
	}
}
