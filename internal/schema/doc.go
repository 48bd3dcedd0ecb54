// Package schema holds the input tree of the resolver and a YAML loader that
// stands in for the host declaration parser.
//
// Schema file layout:
//
//	containers:
//	  - enum: Packet
//	    deku:
//	      type: u8
//	    variants:
//	      - name: Ping
//	        deku: { id: 0x01 }
//	        fields:
//	          - name: seq
//	            type: u16
//	  - struct: Header
//	    deku: { endian: big }
//	    fields:
//	      - name: version
//	        type: u8
//
// Keys inside a `deku` mapping are directives. Their order is kept and repeated
// keys are passed through so the resolver can report them. Structural mistakes
// (unknown node keys, a container that is neither enum nor struct) are load
// errors; an unknown directive name is a diagnostic.
package schema
