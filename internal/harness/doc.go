// Package harness runs end-to-end merge scenarios.
//
// A scenario describes, in YAML, the classes of each version. The harness
// assembles real class files from it, ingests them version by version,
// writes the superset, reads every emitted class back and evaluates the
// scenario's assertions against the markers it finds.
//
// # Scenario Format
//
//	name: p_a_visibility
//	description: "f() narrows to protected, g() appears in version 2"
//	versions:
//	  - label: "1"
//	    classes:
//	      - name: p/A
//	        methods:
//	          - { name: f, desc: ()I, access: [public] }
//	  - label: "2"
//	    classes:
//	      - name: p/A
//	        methods:
//	          - { name: f, desc: ()I, access: [protected] }
//	          - { name: g, desc: ()V }
//	assertions:
//	  - { type: exists_in, class: p/A, method: g, desc: ()V, versions: ["2"] }
//	  - type: alt_visibility
//	    class: p/A
//	    method: f
//	    desc: ()I
//	    changes: [{version: "1", value: PUBLIC}, {version: "2", value: PROTECTED}]
//
// # Assertion Types
//
//   - exists_in: the existence set equals versions
//   - alt_visibility, alt_modality: the history equals changes
//   - nullability: the declared nullability equals value
//   - no_marker: the named marker is absent
//   - absent: the class or member was not emitted
//
// A scenario may instead set expect_error to invariant_violation or
// emission_error, in which case the run must fail that way.
//
// # Golden Files
//
// RunWithGolden compares the canonical JSON of the inspected metadata with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
