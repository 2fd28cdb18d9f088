package compiler

import (
	"github.com/chazu/oosh/vm"
)

// ---------------------------------------------------------------------------
// Codegen: Compile declarations to runtime class declarations
// ---------------------------------------------------------------------------

// Compiler turns parsed declarations into vm declarations. Method bodies
// become closures that walk the AST when dispatched.
type Compiler struct {
	sess *Session
	file string // source name used in failure messages
}

// NewCompiler creates a compiler whose methods run in sess.
func NewCompiler(sess *Session, file string) *Compiler {
	return &Compiler{sess: sess, file: file}
}

// CompileClass compiles a class, trait or decorator definition.
func (c *Compiler) CompileClass(def *ClassDef) *vm.ClassDecl {
	decl := &vm.ClassDecl{
		Name:      def.Name,
		Parent:    def.Parent,
		Traits:    append([]string(nil), def.Traits...),
		Decorates: def.Decorates,
	}
	switch def.Kind {
	case DeclTrait:
		decl.Kind = vm.KindTrait
	case DeclDecorator:
		decl.Kind = vm.KindDecorator
	default:
		decl.Kind = vm.KindClass
	}

	for _, a := range def.Attributes {
		decl.Attributes = append(decl.Attributes, c.compileAttribute(a))
	}
	for _, m := range def.Methods {
		decl.Methods = append(decl.Methods, vm.MethodDecl{
			Name:       m.Name,
			Visibility: visibility(m.Private),
			Fn:         c.compileMethod(m),
		})
	}
	log.Debugf("compiled %s %s: %d attributes, %d methods",
		decl.Kind, decl.Name, len(decl.Attributes), len(decl.Methods))
	return decl
}

// compileAttribute keeps literal defaults as values. Any other default is
// evaluated in the constructing frame each time an object is constructed.
func (c *Compiler) compileAttribute(a *AttributeDef) vm.AttributeDecl {
	ad := vm.AttributeDecl{Name: a.Name, Visibility: visibility(a.Private)}
	switch d := a.Default.(type) {
	case nil:
	case *IntLiteral:
		ad.Default = vm.Int(d.Value)
	case *StringLiteral:
		ad.Default = vm.Text(d.Value)
	default:
		ad.Init = func(self *vm.Self) (vm.Value, error) {
			in := c.interp(self)
			v, err := in.eval(d)
			if err != nil {
				return vm.Unset, err
			}
			return vm.Text(v), nil
		}
	}
	return ad
}

// compileMethod binds parameters to arguments by position. Missing
// arguments are empty; extra arguments are ignored.
func (c *Compiler) compileMethod(m *MethodDef) vm.MethodFunc {
	return func(self *vm.Self, args []string) error {
		in := c.interp(self)
		for i, p := range m.Params {
			v := ""
			if i < len(args) {
				v = args[i]
			}
			in.env.define(p, v)
		}
		_, err := in.execBlock(m.Body)
		return err
	}
}

func (c *Compiler) interp(self *vm.Self) *interp {
	return &interp{
		sess: c.sess,
		vm:   self.VM(),
		self: self,
		env:  newEnv(),
		file: c.file,
	}
}

func visibility(private bool) vm.Visibility {
	if private {
		return vm.Private
	}
	return vm.Public
}
