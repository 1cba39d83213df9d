package rmi

import (
	"reflect"
	"testing"

	"github.com/meridianfs/namefs/internal/fserrors"
)

type Pinger interface {
	Ping(msg string) (string, error)
	Fail() (string, error)
}

type pingerImpl struct{}

func (pingerImpl) Ping(msg string) (string, error) {
	return "pong:" + msg, nil
}

func (pingerImpl) Fail() (string, error) {
	return "", fserrors.New(fserrors.NotFound, "no such thing")
}

func startSkeleton(t *testing.T) *Skeleton {
	t.Helper()
	sk, err := NewSkeleton(reflect.TypeOf((*Pinger)(nil)).Elem(), pingerImpl{}, "127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewSkeleton: %v", err)
	}
	if err := sk.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { sk.Stop() })
	return sk
}

func TestCallRoundTrip(t *testing.T) {
	sk := startSkeleton(t)
	h := StubFromAddress("Pinger", sk.Address())

	got, err := Call[string](h, "Ping", "hi")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "pong:hi" {
		t.Fatalf("got %q, want pong:hi", got)
	}
}

func TestCallPropagatesRemoteErrorKind(t *testing.T) {
	sk := startSkeleton(t)
	h := StubFromAddress("Pinger", sk.Address())

	_, err := Call[string](h, "Fail")
	if !fserrors.Is(err, fserrors.NotFound) {
		t.Fatalf("Call error = %v, want NotFound", err)
	}
}

func TestCallUnknownMethod(t *testing.T) {
	sk := startSkeleton(t)
	h := StubFromAddress("Pinger", sk.Address())

	_, err := Call[string](h, "DoesNotExist")
	if !fserrors.Is(err, fserrors.RemoteError) {
		t.Fatalf("Call error = %v, want RemoteError", err)
	}
}

func TestNewSkeletonRejectsNonInterface(t *testing.T) {
	_, err := NewSkeleton(reflect.TypeOf(pingerImpl{}), pingerImpl{}, "127.0.0.1:0", nil)
	if !fserrors.Is(err, fserrors.NotRemoteInterface) {
		t.Fatalf("NewSkeleton error = %v, want NotRemoteInterface", err)
	}
}

func TestNewSkeletonRejectsNonImplementor(t *testing.T) {
	type other struct{}
	_, err := NewSkeleton(reflect.TypeOf((*Pinger)(nil)).Elem(), other{}, "127.0.0.1:0", nil)
	if !fserrors.Is(err, fserrors.NotRemoteInterface) {
		t.Fatalf("NewSkeleton error = %v, want NotRemoteInterface", err)
	}
}

func TestStubFromSkeletonBeforeStart(t *testing.T) {
	sk, err := NewSkeleton(reflect.TypeOf((*Pinger)(nil)).Elem(), pingerImpl{}, "127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewSkeleton: %v", err)
	}
	if _, err := StubFromSkeleton("Pinger", sk); !fserrors.Is(err, fserrors.NotStarted) {
		t.Fatalf("StubFromSkeleton error = %v, want NotStarted", err)
	}
}

func TestStubHandleEqual(t *testing.T) {
	a := StubHandle{Interface: "Pinger", Addr: "127.0.0.1:1234"}
	b := StubHandle{Interface: "Pinger", Addr: "127.0.0.1:1234"}
	c := StubHandle{Interface: "Pinger", Addr: "127.0.0.1:5678"}
	if !a.Equal(b) {
		t.Fatal("identical handles should be equal")
	}
	if a.Equal(c) {
		t.Fatal("handles with different addresses should not be equal")
	}
}
