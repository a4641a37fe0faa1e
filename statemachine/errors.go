package statemachine

import "errors"

var (
	// errNotBootstrapped is the error HandleSendMessage returns from
	// Bootstrapping when compatibility mode is disabled (see
	// Config.Compat.BootstrappingSendMessageReturnsOK).
	errNotBootstrapped = errors.New("statemachine: cannot send message, node is not bootstrapped")

	// errWrongState describes a message variant the current state's
	// verification policy does not accept. No handler returns it: the
	// states drop such messages and return a nil error.
	errWrongState = errors.New("statemachine: message variant not accepted in current state")

	// errInconsistentSrc is returned when a send_message request names a
	// source location the node is not entitled to claim: a node name
	// other than its own, or a section it is not currently an elder of.
	errInconsistentSrc = errors.New("statemachine: src location inconsistent with node's own identity")
)
