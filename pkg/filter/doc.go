// Package filter implements the query language accepted in the filter, order and select
// parameters: a lexer, a recursive-descent parser producing an Expression tree plus a set of
// directives, and compilers emitting parameterized SQL through a QuerySink.
//
// Literal values never reach the generated SQL: they are bound as parameters. Only
// identifiers, quoted JSON keys and the fixed operator keywords are written into it.
package filter

// Grammar
//
// --- PARSER RULES ---
//
// expr        : or ;
// or          : and ( "|" and )* ;
// and         : not ( "," not )* ;               // directives are allowed here at top level only
// not         : "!" not
//             | "not(" or ")"
//             | primary ;
// primary     : "(" or ")"
//             | "and(" chain ( "," chain )* ")"
//             | "or(" chain ( "," chain )* ")"
//             | cast_cond
//             | condition ;
// chain       : not ( "|" not )* ;
//
// cast_cond   : ( "{" field "}" | "(" field ")" ) "::" IDENTIFIER ( "[]" )? "." OPERATOR args ;
// condition   : field "." OPERATOR args ;
// field       : NAME ( "." NAME | ( "->" | "->>" ) KEY )* ;   // no "." after an arrow
// args        : "(" ( value ( "," value )* )? ")"
//             | "[" ( value ( "," value )* )? "]" ;           // empty args mean (null)
//
// directive   : "$" "." ( "limit" | "offset" | "shape" | "join" ) "(" value ")"
//             | "$" "." ( "order" | "group" ) "(" BODY ")" ;
//
// order       : term ( "," term )* ;
// term        : field ( "." ( "asc" | "desc" ) )? ( "." ( "nullsfirst" | "nullslast" ) )? ;
//
// select      : item ( "," item )* ;
// item        : ( NAME ":" )? ( "*" | field ( "::" IDENTIFIER )? | embed ) ;
// embed       : NAME ( "!" MODIFIER )* ( "{" NAME "=" VALUE "}" )? "(" select ")" ;
//
// --- LEXER RULES ---
//
// NAME        : IDENTIFIER | OPERATOR | COLUMN ;
// IDENTIFIER  : [a-zA-Z_][a-zA-Z0-9_]* ;
// OPERATOR    : IDENTIFIER ;                     // only right after a ".", and allow-listed
// COLUMN      : '"' ( '\"' | . )* '"' ;
// STRING      : "'" ( "\'" | . )* "'" ;
// RAW         : '`' ( '\`' | . )* '`' ;          // trusted callers only
// NUMBER      : "-"? [0-9]+ ( "." [0-9]+ )? ( [eE] [+-]? [0-9]+ )? ;
// WORD        : unquoted argument text up to a top level "," or the closing delimiter ;
//
// Inside an argument list unquoted values are read as whole words, so "John Smith" or
// 2024-01-02T10:00:00Z need no quoting. Words are classified as numbers, booleans, null,
// undefined or strings; strings shaped like ISO-8601 dates become date values.
//
// The delimiters "(", ")", ",", "|" and "!" can be changed through Config.
