package engine

import "slices"

// FinalOrder is the canonical sequence of final round screens.
var FinalOrder = []Screen{
	ScreenFinalBets,
	ScreenFinalQuestion,
	ScreenFinalProcessing,
	ScreenFinalReveal,
	ScreenGameOver,
}

func (sc Screen) IsFinal() bool {
	return slices.Contains(FinalOrder, sc)
}

// finalStepAllowed checks a display change against FinalOrder. Only moves
// into a final screen are constrained: entering final_bets is always
// allowed, every later screen must directly follow the current one, and
// repeating the current screen is a no-op change. game_over may also be
// reached from outside the final round.
func finalStepAllowed(from, to Screen) bool {
	if !to.IsFinal() || to == ScreenFinalBets || from == to {
		return true
	}
	if to == ScreenGameOver && !from.IsFinal() {
		return true
	}
	i := slices.Index(FinalOrder, to)
	return i > 0 && FinalOrder[i-1] == from
}
