package d3d12

import (
	"testing"

	"github.com/afiedler/wgpu/d3d12/native"
	"github.com/afiedler/wgpu/hal"
)

func TestHresultClassification(t *testing.T) {
	cases := []struct {
		hr   native.HRESULT
		want string
	}{
		{native.E_UNEXPECTED, "unexpected"},
		{native.E_NOTIMPL, "not implemented"},
		{native.E_OUTOFMEMORY, "out of memory"},
		{native.E_INVALIDARG, "invalid argument"},
		{native.DXGI_ERROR_DEVICE_REMOVED, "0x887A0005"},
	}
	for _, c := range cases {
		if got := hresultString(c.hr); got != c.want {
			t.Errorf("hresultString(%d) = %q, want %q", c.hr, got, c.want)
		}
	}
}

func TestCheckResult(t *testing.T) {
	if err := checkResult(native.S_OK); err != nil {
		t.Fatalf("S_OK must be nil, got %v", err)
	}
	err := checkResult(native.E_INVALIDARG)
	if err == nil || err.Error() != "invalid argument" {
		t.Fatalf("checkResult = %v", err)
	}
}

func TestDeviceResultTaxonomy(t *testing.T) {
	if err := deviceResult(native.S_OK, "noop"); err != nil {
		t.Fatalf("S_OK must be nil, got %v", err)
	}
	if err := deviceResult(native.E_OUTOFMEMORY, "alloc"); err != hal.ErrOutOfMemory {
		t.Fatalf("memory failure = %v, want out of memory", err)
	}
	// Everything else collapses to device-lost.
	for _, hr := range []native.HRESULT{native.E_UNEXPECTED, native.E_INVALIDARG, native.DXGI_ERROR_DEVICE_RESET} {
		if err := deviceResult(hr, "op"); err != hal.ErrDeviceLost {
			t.Fatalf("deviceResult(%d) = %v, want device lost", hr, err)
		}
	}
}
