// Package schema provides a small type system for checking loosely typed
// property bags, such as the per-node properties a flow editor persists.
//
// Schemas map property names to fields; a field pairs a Type with whether the
// property is required. Nested bags and lists are expressed with Object and
// List, so a failure deep inside a bag is reported with a dotted key:
//
//	menu := schema.Schema{
//	    "title": schema.Optional(schema.String()),
//	    "options": schema.Required(schema.List(schema.Object(schema.Schema{
//	        "text":     schema.Required(schema.String()),
//	        "nextStep": schema.Optional(schema.String()),
//	    }))),
//	}
//
//	if err := schema.Validate(menu, props); err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        // e.g. property "options.1.text": required
//	    }
//	}
//
// Absent and null properties are treated alike. Properties the schema does
// not mention are ignored.
package schema
