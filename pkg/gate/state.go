package gate

// ClassifyState normalizes the arousal/dominance signals into a control-state
// category. Dysregulated is assigned exactly when arousal is high and
// dominance is low; every other combination, including any unknown, maps to
// regulated. The binary is intentionally coarse: it exists to catch a user
// who reads as agitated and low-control making a boundary-adjacent request,
// not to model emotion generally.
func ClassifyState(arousal, dominance Signal) ControlState {
	if arousal == SignalHigh && dominance == SignalLow {
		return StateDysregulated
	}
	return StateRegulated
}
