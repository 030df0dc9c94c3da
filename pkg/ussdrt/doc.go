/*
Package ussdrt is the runtime of every generated USSD program.

The compiler lowers each flow node into a small handler that calls one step
method of Runtime (Menu, Input, Payment, Branch, Call, Validate, End) with the
node's configuration baked in as a literal. Everything those handlers rely
on lives here: the CON/END reply convention, the per-caller Session and its
stores, request parsing and the HTTP application.

The files of this package are embedded with go:embed and copied verbatim
into generated programs, with the package clause rewritten to main (see
Source). They may therefore only import the standard library, chi and
go-redis, which are exactly the dependencies the generated manifest lists.
This file and embed.go are not copied.
*/
package ussdrt
