/*
Package dsl provides a fluent Go builder for USSD flow graphs.

It produces the same flow.Graph the editor persists, which makes it the
quickest way to assemble fixtures in tests or to generate flows from code.

Example usage:

	b := dsl.New()

	b.Menu("main", "Main Menu").
		Title("Welcome").
		OptionMessage("Send money", "amount", "Enter amount").
		Option("Exit", "bye")

	b.Input("amount", "Amount").
		Variable("amount").
		Required().
		Numeric().
		Min(10).
		Go("bye")

	b.End("bye", "Goodbye").
		Message("Thank you").
		Summary()

	graph := b.Graph()
*/
package dsl
