/*
Package ussdflow turns visual USSD flow graphs into standalone Go programs.

A flow graph is a set of typed nodes (menus, inputs, payments, conditional
branches, API calls, validations and end screens) joined by edges. The
Builder validates a graph, compiles it into the source of a small HTTP
service that speaks the CON/END protocol of USSD gateways, and keeps named
projects in a pluggable store.

# Usage

	b := ussdflow.New(memory.NewStore())

	proj, err := b.CreateProject(ctx, "Pesa Express", "", graph)
	if err != nil {
		log.Fatal(err)
	}

	proj, prog, err := b.GenerateProject(ctx, proj.ID)
	if err != nil {
		var invalid *ussdflow.InvalidFlowError
		if errors.As(err, &invalid) {
			fmt.Println(invalid.Result.Errors)
		}
		log.Fatal(err)
	}
	fmt.Println(prog.Paths())

The compiler itself lives in pkg/compiler and the structural checks in
pkg/validator; both are pure and can be used without a Builder.
*/
package ussdflow
