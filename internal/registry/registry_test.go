package registry

import "testing"

func TestSubtypeReflexiveAndTransitive(t *testing.T) {
	r := New()
	animal, err := r.Register("Animal", TableOpen, nil)
	if err != nil {
		t.Fatalf("register Animal: %v", err)
	}
	dog, err := r.Register("Dog", TableOpen, []string{"Animal"})
	if err != nil {
		t.Fatalf("register Dog: %v", err)
	}
	puppy, err := r.Register("Puppy", TableSealed, []string{"Dog"})
	if err != nil {
		t.Fatalf("register Puppy: %v", err)
	}

	for _, id := range []TypeId{animal, dog, puppy} {
		if !r.IsSubtype(id, id) {
			t.Errorf("IsSubtype(%d, %d) = false, want true (reflexivity)", id, id)
		}
	}

	if !r.IsSubtype(puppy, dog) || !r.IsSubtype(dog, animal) {
		t.Fatalf("expected Puppy <: Dog <: Animal")
	}
	if !r.IsSubtype(puppy, animal) {
		t.Error("transitivity failed: Puppy should be a subtype of Animal")
	}
	if r.IsSubtype(animal, dog) {
		t.Error("Animal must not be a subtype of Dog")
	}
}

func TestPrimitivesAreSealedLeaves(t *testing.T) {
	r := New()
	i, _ := r.Register("Int", Primitive, nil)
	if !r.IsSealed(i) {
		t.Error("primitives must be sealed")
	}
	if _, err := r.Register("WeirdSubInt", TableOpen, []string{"Int"}); err == nil {
		t.Error("expected error registering a subtype of a primitive")
	}
}

func TestSpecificityMonotone(t *testing.T) {
	r := New()
	animal, _ := r.Register("Animal", TableOpen, nil)
	dog, _ := r.Register("Dog", TableSealed, []string{"Animal"})

	if r.SpecificityScore(dog) <= r.SpecificityScore(animal) {
		t.Errorf("Dog (score %d) should be strictly more specific than Animal (score %d)",
			r.SpecificityScore(dog), r.SpecificityScore(animal))
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	r := New()
	if _, err := r.Register("Int", Primitive, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Register("Int", Primitive, nil); err == nil {
		t.Error("expected error re-registering Int")
	}
}

func TestUnknownSupertypeRejected(t *testing.T) {
	r := New()
	if _, err := r.Register("Dog", TableOpen, []string{"Animal"}); err == nil {
		t.Error("expected error registering Dog with unregistered supertype Animal")
	}
}

func TestLookupAndName(t *testing.T) {
	r := New()
	id, err := r.Register("String", Primitive, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	got, ok := r.Lookup("String")
	if !ok || got != id {
		t.Fatalf("Lookup(String) = (%d, %v), want (%d, true)", got, ok, id)
	}
	if r.Name(id) != "String" {
		t.Errorf("Name(%d) = %q, want String", id, r.Name(id))
	}
	if _, ok := r.Lookup("Nonexistent"); ok {
		t.Error("Lookup(Nonexistent) should fail")
	}
}
