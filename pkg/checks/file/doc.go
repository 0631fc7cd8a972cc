// Package file is a checking engine that tests file metadata.
//
// It collects file items the way the OVAL unix file probe does (path,
// filename, type, owner, group, times, size and permission bits) and
// compares them with a declared state. Content documents are YAML:
//
//	tests:
//	  - name: shadow_permissions
//	    path: /etc
//	    filename: shadow
//	    state:
//	      type: regular
//	      user_id: 0
//	      mode_max: 0640
//	  - name: no_world_writable_cron
//	    path: /etc/cron.d
//	    pattern: ".*"
//	    check: all
//	    state:
//	      owrite: false
//	  - name: no_rhosts
//	    path: /root
//	    filename: .rhosts
//	    existence: none_exist
package file
