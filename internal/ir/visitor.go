package ir

// Visitor is the single-dispatch walker over IR variants (§4.3 of the
// design). A concrete backend embeds BaseVisitor and overrides only the
// methods its generation strategy needs; Accept on each node type calls
// straight into the matching method, so embedding BaseVisitor is what
// supplies the "falls through to a shared handler" behavior described by
// the design: an un-overridden method is BaseVisitor's, which reports
// GenError{Kind: InvalidIRNode}.
type Visitor interface {
	VisitLiteral(*Literal) (any, error)
	VisitFieldAccess(*FieldAccess) (any, error)
	VisitBinaryOp(*BinaryOp) (any, error)
	VisitAssignment(*Assignment) (any, error)
	VisitHorizontalDomain(*HorizontalDomain) (any, error)
	VisitVerticalDomain(*VerticalDomain) (any, error)
	VisitIR(*IR) (any, error)
}

// BaseVisitor implements Visitor with a single fallback: every method
// raises GenError{InvalidIRNode}. Embed it in a concrete visitor and
// override the handlers that visitor actually supports.
type BaseVisitor struct{}

func (BaseVisitor) VisitLiteral(n *Literal) (any, error)       { return nil, invalidNode(n) }
func (BaseVisitor) VisitFieldAccess(n *FieldAccess) (any, error) { return nil, invalidNode(n) }
func (BaseVisitor) VisitBinaryOp(n *BinaryOp) (any, error)     { return nil, invalidNode(n) }
func (BaseVisitor) VisitAssignment(n *Assignment) (any, error) { return nil, invalidNode(n) }
func (BaseVisitor) VisitHorizontalDomain(n *HorizontalDomain) (any, error) {
	return nil, invalidNode(n)
}
func (BaseVisitor) VisitVerticalDomain(n *VerticalDomain) (any, error) { return nil, invalidNode(n) }
func (BaseVisitor) VisitIR(n *IR) (any, error)                         { return nil, invalidNode(n) }

func invalidNode(n Node) error {
	return &GenError{Kind: InvalidIRNode, Node: n}
}

// GenErrorKind enumerates the internal code-generation failure modes.
type GenErrorKind string

const (
	// InvalidIRNode means an IR variant reached a visitor with no handler
	// for it. Well-formed IR from the frontend should never trigger this;
	// seeing it means a backend is missing a case.
	InvalidIRNode GenErrorKind = "InvalidIRNode"
)

// GenError is raised internally by backend visitors. Unlike FrontendError
// and BuildError it is never expected on well-formed input; it signals a
// bug in a backend's visitor coverage.
type GenError struct {
	Kind GenErrorKind
	Node Node
}

func (e *GenError) Error() string {
	return string(e.Kind) + ": no visitor handler for IR node"
}
