package vm

import (
	"errors"
	"fmt"
)

// objectClassDecl declares the root class. Every method here can be
// overridden by subclasses; overrides reach these through parent calls.
func objectClassDecl() *ClassDecl {
	return &ClassDecl{
		Name: RootClassName,
		Kind: KindClass,
		Methods: []MethodDecl{
			{Name: "construct", Visibility: Public, Fn: objectConstruct},
			{Name: "destruct", Visibility: Public, Fn: objectDestruct},
			{Name: "clone", Visibility: Public, Fn: objectClone},
			{Name: "get", Visibility: Public, Fn: objectGet},
			{Name: "set", Visibility: Public, Fn: objectSet},
			{Name: "toString", Visibility: Public, Fn: objectToString},
			{Name: "class", Visibility: Public, Fn: objectClass},
			{Name: "id", Visibility: Public, Fn: objectID},
			{Name: "isKindOf", Visibility: Public, Fn: objectIsKindOf},
			{Name: "respondsTo", Visibility: Public, Fn: objectRespondsTo},
			{Name: "persist", Visibility: Public, Fn: objectPersist},
		},
	}
}

func objectConstruct(s *Self, args []string) error {
	return nil
}

func objectDestruct(s *Self, args []string) error {
	return s.vm.destruct(s.Object())
}

// objectClone accepts either a reference (Class:ID) or a bare identity, in
// which case the copy keeps the source's class.
func objectClone(s *Self, args []string) error {
	if len(args) == 0 {
		return s.vm.Throw(IllegalArgumentException, "clone: missing target identity")
	}
	target, ok := parseTarget(args[0], s.Object().Class)
	if !ok {
		return s.vm.Throw(IllegalArgumentException, fmt.Sprintf("clone: %q is not an object identity", args[0]))
	}
	return s.vm.clone(s.Object(), target)
}

func parseTarget(arg, class string) (Ref, bool) {
	if ValidIdentity(arg) {
		return Ref{Class: class, ID: arg}, true
	}
	ref, err := ParseRef(arg)
	return ref, err == nil
}

// objectGet prints an attribute value. Unset attributes print nothing.
func objectGet(s *Self, args []string) error {
	if len(args) == 0 {
		return s.vm.Throw(IllegalArgumentException, "get: missing attribute name")
	}
	v, err := s.vm.getAttribute(s.frame, args[0], s.Internal())
	if err != nil || !v.IsSet() {
		return err
	}
	s.Println(v.String())
	return nil
}

// objectSet assigns an attribute. Without a value argument the attribute
// becomes unset again; an empty argument is an assigned empty text.
func objectSet(s *Self, args []string) error {
	if len(args) == 0 {
		return s.vm.Throw(IllegalArgumentException, "set: missing attribute name")
	}
	v := Unset
	if len(args) > 1 {
		v = Text(args[1])
	}
	return s.vm.setAttribute(s.frame, args[0], v, s.Internal())
}

func objectToString(s *Self, args []string) error {
	s.Println(s.Ref().String())
	return nil
}

func objectClass(s *Self, args []string) error {
	s.Println(s.Object().Class)
	return nil
}

func objectID(s *Self, args []string) error {
	s.Println(s.Object().ID)
	return nil
}

// objectIsKindOf prints true if the receiver's class is or inherits the
// named class.
func objectIsKindOf(s *Self, args []string) error {
	if len(args) == 0 {
		return s.vm.Throw(IllegalArgumentException, "isKindOf: missing class name")
	}
	class, err := s.vm.Resolve(s.Object().Class)
	if err != nil {
		return s.vm.throwResolveError(err)
	}
	s.Println(class.IsSubclassOf(args[0]))
	return nil
}

// objectRespondsTo prints true if the receiver has a public method.
func objectRespondsTo(s *Self, args []string) error {
	if len(args) == 0 {
		return s.vm.Throw(IllegalArgumentException, "respondsTo: missing method name")
	}
	class, err := s.vm.Resolve(s.Object().Class)
	if err != nil {
		return s.vm.throwResolveError(err)
	}
	s.Println(class.VTable.LookupPublic(args[0]) != nil)
	return nil
}

var errNoPersistence = errors.New("persistence is not configured")

func objectPersist(s *Self, args []string) error {
	if s.vm.persistence == nil {
		return errNoPersistence
	}
	return s.vm.persistence.Save(s.Object())
}
