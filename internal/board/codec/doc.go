// Package codec converts between the live board and serializable snapshots.
//
// Capture and Restore cross the Document boundary; Encode and Decode map
// snapshots to and from the versioned JSON layout:
//
//	{ "version": "2.0",
//	  "groups": [
//	    { "type": "math", "left": "10px", "top": "20px", "fields": ["x^2"] },
//	    { "type": "text", "left": "0px", "top": "0px",
//	      "fields": [ "plain", { "text": "a  b", "mathFields": [ {"position": 2, "latex": "x"} ] } ] }
//	  ]
//	}
//
// # Versions
//
// Decode dispatches on the version tag through a table of dialects:
//
//   - no tag, bare array: the oldest layout, every group is math
//   - no tag, object: groups without a type are math
//   - "1.0": typed groups, normalized to the current version
//   - "2.0": the current layout
//
// Unknown versions are read best effort: known group types decode as usual
// and unknown ones are carried as board.OpaqueGroup, unchanged.
package codec
