package vn

import "testing"

func TestStoreNewNormalIsOwnNormalValue(t *testing.T) {
	s := NewStore()
	v := s.NewNormal()

	if s.NormalValue(v) != v {
		t.Errorf("NormalValue(%v) = %v, want %v", v, s.NormalValue(v), v)
	}
	if s.ExceptionSet(v) != ExcSet(ExcNone) {
		t.Errorf("fresh normal VN should carry no exceptions, got %v", s.ExceptionSet(v))
	}
}

func TestStoreNewWithExceptionsSharesNormalValue(t *testing.T) {
	s := NewStore()
	normal := s.NewNormal()
	withExc := s.NewWithExceptions(normal, ExcSet(ExcDivideByZero))

	if withExc == normal {
		t.Fatal("a VN with a non-empty exception set must differ from its normal value")
	}
	if s.NormalValue(withExc) != normal {
		t.Errorf("NormalValue(withExc) = %v, want %v", s.NormalValue(withExc), normal)
	}
	if s.ExceptionSet(withExc) != ExcSet(ExcDivideByZero) {
		t.Errorf("ExceptionSet(withExc) = %v, want DivideByZero", s.ExceptionSet(withExc))
	}
}

func TestStoreNewWithExceptionsEmptySetReturnsNormal(t *testing.T) {
	s := NewStore()
	normal := s.NewNormal()

	if got := s.NewWithExceptions(normal, ExcSet(ExcNone)); got != normal {
		t.Errorf("NewWithExceptions with no exceptions should return the normal VN itself, got %v", got)
	}
}

func TestStoreConstant(t *testing.T) {
	s := NewStore()
	v := s.NewConstant(uint64(42))

	if !s.IsConstant(v) {
		t.Error("NewConstant should mark the VN as constant")
	}
	if got := s.CoercedConstantValue(v); got != uint64(42) {
		t.Errorf("CoercedConstantValue = %v, want 42", got)
	}
	if s.NormalValue(v) != v {
		t.Error("a constant VN should be its own normal value")
	}
}

func TestStoreNoVNIsInert(t *testing.T) {
	s := NewStore()

	if s.NormalValue(NoVN) != NoVN {
		t.Error("NormalValue(NoVN) should be NoVN")
	}
	if s.ExceptionSet(NoVN) != ExcSet(ExcNone) {
		t.Error("ExceptionSet(NoVN) should be empty")
	}
	if s.IsConstant(NoVN) {
		t.Error("NoVN should never be constant")
	}
}

func TestExcSetHelpers(t *testing.T) {
	a := ExcSet(ExcDivideByZero | ExcOverflow)
	b := ExcSet(ExcOverflow)

	if !ExcIsSubset(b, a) {
		t.Error("{Overflow} should be a subset of {DivideByZero, Overflow}")
	}
	if ExcIsSubset(a, b) {
		t.Error("{DivideByZero, Overflow} should not be a subset of {Overflow}")
	}

	union := ExcSetUnion(a, ExcSet(ExcNullDeref))
	if union != ExcSet(ExcDivideByZero|ExcOverflow|ExcNullDeref) {
		t.Errorf("ExcSetUnion = %v, want union of all three", union)
	}

	intersection := ExcSetIntersection(a, b)
	if intersection != b {
		t.Errorf("ExcSetIntersection(a, b) = %v, want %v", intersection, b)
	}
}

func TestVNForEmptyExcSet(t *testing.T) {
	if VNForEmptyExcSet() != ExcSet(ExcNone) {
		t.Error("VNForEmptyExcSet should equal ExcNone")
	}
}

func TestVNString(t *testing.T) {
	if NoVN.String() != "<noVN>" {
		t.Errorf("NoVN.String() = %q, want <noVN>", NoVN.String())
	}
	if VN(3).String() == "" {
		t.Error("a valid VN should stringify to something non-empty")
	}
}
