package clipboard

import "testing"

func TestSetGetRoundTrip(t *testing.T) {
	s := New()
	s.Set(Unnamed, Entry{Text: "hello", Kind: Charwise})
	e, ok := s.Get(Unnamed)
	if !ok || e.Text != "hello" || e.Kind != Charwise {
		t.Fatalf("unexpected entry: %+v ok=%v", e, ok)
	}
}

func TestGetMissingRegister(t *testing.T) {
	s := New()
	if _, ok := s.Get("a"); ok {
		t.Fatalf("expected missing register to report false")
	}
}

func TestNamedRegistersIndependent(t *testing.T) {
	s := New()
	s.Set("a", Entry{Text: "foo"})
	s.Set(Unnamed, Entry{Text: "bar"})
	a, _ := s.Get("a")
	u, _ := s.Get(Unnamed)
	if a.Text != "foo" || u.Text != "bar" {
		t.Fatalf("registers interfered: a=%+v unnamed=%+v", a, u)
	}
}
