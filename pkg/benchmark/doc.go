// Package benchmark holds the in-memory XCCDF item tree consumed by the
// policy engine: the benchmark root, groups, rules, values and profiles.
//
// The tree is built once (by New or by loading a YAML benchmark document) and
// is read-only afterwards. Tailoring a profile never edits the tree; the
// policy package derives selections and value bindings from it and produces
// detached copies (Clone) when tailoring has to be baked in.
//
// # Document Format
//
//	id: xccdf_org.example_benchmark_demo
//	title: Demo benchmark
//	items:
//	  - type: group
//	    id: xccdf_org.example_group_ssh
//	    items:
//	      - type: value
//	        id: xccdf_org.example_value_max_auth_tries
//	        value_type: number
//	        value: "4"
//	      - type: rule
//	        id: xccdf_org.example_rule_sshd_max_auth_tries
//	        weight: 2
//	        checks:
//	          - system: urn:mercator:check:cel
//	            content:
//	              - href: ssh.yaml
//	                name: max-auth-tries
//	            exports:
//	              - value: xccdf_org.example_value_max_auth_tries
//	                name: max_auth_tries
//	profiles:
//	  - id: xccdf_org.example_profile_strict
//	    select:
//	      - idref: xccdf_org.example_group_ssh
//	        selected: true
//	    set_value:
//	      - idref: xccdf_org.example_value_max_auth_tries
//	        value: "3"
package benchmark
