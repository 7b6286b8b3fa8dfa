package frontend

type reservedItem struct {
	val string
	typ itemType
}

// rw contains the set of all reserved bx keywords, grouped by length.
// Indexing by length before searching avoids a hash table for what is a
// handful of short, fixed strings.
//
// Grounded on the teacher's frontend/lang.go rw table, re-keyed for the
// `.bx` keyword set spec.md §6 lists: def int bool main print var true
// false if else while break continue return.
var rw = [...][]reservedItem{
	// One-grams
	{},
	// Two-grams
	{
		{val: "if", typ: IF},
	},
	// Three-grams
	{
		{val: "def", typ: DEF},
		{val: "int", typ: INT},
		{val: "var", typ: VAR},
	},
	// Four-grams
	{
		{val: "bool", typ: BOOL},
		{val: "main", typ: MAIN},
		{val: "true", typ: TRUE},
		{val: "else", typ: ELSE},
	},
	// Five-grams
	{
		{val: "print", typ: PRINT},
		{val: "false", typ: FALSE},
		{val: "while", typ: WHILE},
		{val: "break", typ: BREAK},
	},
	// Six-grams
	{
		{val: "return", typ: RETURN},
	},
	// Seven-grams
	{},
	// Eight-grams
	{
		{val: "continue", typ: CONTINUE},
	},
}

// keyword reports whether s is a reserved bx keyword, returning its token type.
func keyword(s string) (itemType, bool) {
	if len(s) == 0 || len(s) > len(rw) {
		return 0, false
	}
	for _, r := range rw[len(s)-1] {
		if r.val == s {
			return r.typ, true
		}
	}
	return 0, false
}
