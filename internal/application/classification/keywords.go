package classification

// weightedKeyword is one Spanish phrase and its score contribution.  Slices
// keep matching order deterministic so classification reasons are stable.
type weightedKeyword struct {
	phrase string
	weight int
}

// Phrases that impose a procedural burden with a term to act.
var peremptoryKeywords = []weightedKeyword{
	{"requerir", 10},
	{"requiérase", 10},
	{"en el término de", 10},
	{"dentro de", 8},
	{"plazo de", 10},
	{"deberá presentar", 9},
	{"es obligatorio", 9},
	{"prevéngase", 10},
	{"confiérase traslado", 10},
	{"impóngase plazo", 10},
	{"resuelva en el término", 10},
	{"tendrá", 5},
	{"días para", 7},
	{"días hábiles", 7},
	{"conteste dentro de", 10},
	{"no interponer recurso", 9},
	{"ordénese", 8},
	{"comparecer", 7},
	{"presentar", 6},
	{"allegar", 7},
	{"subsanar", 8},
}

// Phrases typical of mere procedural-impulse orders.
var routineKeywords = []weightedKeyword{
	{"admítase", 10},
	{"tómese nota", 10},
	{"téngase por presentado", 10},
	{"téngase por", 9},
	{"infórmese", 9},
	{"remítase", 9},
	{"agregue", 9},
	{"agréguese", 9},
	{"siga el trámite", 10},
	{"trasládese", 7},
	{"inscríbase", 9},
	{"archívese", 9},
	{"córrase traslado", 6}, // peremptory when paired with an explicit term
}
