package event

// Type tags the event/message variant carried in the `t` field.
type Type string

const (
	Icp Type = "icp" // inception
	Rot Type = "rot" // rotation
	Ixn Type = "ixn" // interaction
	Dip Type = "dip" // delegated inception
	Drt Type = "drt" // delegated rotation
	Rct Type = "rct" // non-/transferable receipt
	Rpy Type = "rpy" // reply
	Qry Type = "qry" // query
	Exn Type = "exn" // exchange
	Vcp Type = "vcp" // TEL registry inception
	Vrt Type = "vrt" // TEL registry rotation
	Iss Type = "iss" // TEL credential issuance
	Rev Type = "rev" // TEL credential revocation
	Bis Type = "bis" // TEL backed issuance (registry-anchored)
	Brv Type = "brv" // TEL backed revocation
)

// IsEstablishment reports whether t changes the controlling key state
// (icp/rot/dip/drt), as opposed to a non-establishment (ixn) or a message
// that carries no key state of its own.
func (t Type) IsEstablishment() bool {
	switch t {
	case Icp, Rot, Dip, Drt:
		return true
	default:
		return false
	}
}

// IsDelegated reports whether t is a delegated establishment event.
func (t Type) IsDelegated() bool {
	return t == Dip || t == Drt
}
