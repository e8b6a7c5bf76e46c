package cerrors

import "fmt"

type Generic struct {
	Phase  string
	Reason string
}

func (e Generic) Error() string {
	if e.Phase == "" {
		return e.Reason
	}
	return fmt.Sprintf("[%s]: %s", e.Phase, e.Reason)
}

func (e Generic) UserFriendly() bool {
	return true
}

func (e Generic) ErrorType() ErrorType {
	return ErrorTypeGeneric
}

type SteadyStateChecks struct {
	Phase  string
	Reason string
}

func (e SteadyStateChecks) Error() string {
	switch {
	case e.Phase == "":
		return fmt.Sprintf("steady state validation failed, %s", e.Reason)
	case e.Reason == "":
		return fmt.Sprintf("steady state validation failed %s experiment", e.Phase)
	default:
		return fmt.Sprintf("steady state validation failed %s experiment, %s", e.Phase, e.Reason)
	}
}

func (e SteadyStateChecks) UserFriendly() bool {
	return true
}

func (e SteadyStateChecks) ErrorType() ErrorType {
	return ErrorTypeSteadyStateChecks
}

type TargetSelection struct {
	Namespace string
	Selector  string
	Reason    string
}

func (e TargetSelection) Error() string {
	if e.Selector == "" {
		return fmt.Sprintf("target selection failed, %s", e.Reason)
	}
	return fmt.Sprintf("target selection with selector '%s' in namespace '%s' failed, %s", e.Selector, e.Namespace, e.Reason)
}

func (e TargetSelection) UserFriendly() bool {
	return true
}

func (e TargetSelection) ErrorType() ErrorType {
	return ErrorTypeTargetSelection
}

type Injection struct {
	Kind   string
	Target string
	Reason string
}

func (e Injection) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("failed to inject '%s' fault, %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("failed to inject '%s' fault on '%s', %s", e.Kind, e.Target, e.Reason)
}

func (e Injection) UserFriendly() bool {
	return true
}

func (e Injection) ErrorType() ErrorType {
	return ErrorTypeInjection
}

type RecoveryTimeout struct {
	Kind   string
	Reason string
}

func (e RecoveryTimeout) Error() string {
	return fmt.Sprintf("recovery from '%s' fault timed out, %s", e.Kind, e.Reason)
}

func (e RecoveryTimeout) UserFriendly() bool {
	return true
}

func (e RecoveryTimeout) ErrorType() ErrorType {
	return ErrorTypeRecoveryTimeout
}

type Recovery struct {
	Kind   string
	Reason string
}

func (e Recovery) Error() string {
	return fmt.Sprintf("recovery from '%s' fault failed, %s", e.Kind, e.Reason)
}

func (e Recovery) UserFriendly() bool {
	return true
}

func (e Recovery) ErrorType() ErrorType {
	return ErrorTypeRecovery
}

type UnsupportedFault struct {
	Kind string
}

func (e UnsupportedFault) Error() string {
	return fmt.Sprintf("failure type '%s' is not implemented", e.Kind)
}

func (e UnsupportedFault) UserFriendly() bool {
	return true
}

func (e UnsupportedFault) ErrorType() ErrorType {
	return ErrorTypeUnsupportedFault
}
