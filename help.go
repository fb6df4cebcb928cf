package main

import "io"

func usage(w io.Writer) {
	io.WriteString(w, "commands:\n")
	io.WriteString(w, "build [fen] - extend the book from a position (default: startpos)\n")
	io.WriteString(w, "seeds [path] - extend the book from every position in a seeds file\n")
	io.WriteString(w, "lookup <fen> - show the recorded move for a position\n")
	io.WriteString(w, "line <fen> - follow the recorded line forward from a position\n")
	io.WriteString(w, "size - number of positions in the book\n")
	io.WriteString(w, "save - flush the book to disk now\n")
	io.WriteString(w, "compile <out.bin> - write the compiled binary book\n")
	io.WriteString(w, "probe <book.bin> <fen> - look a position up in a compiled book\n")
	io.WriteString(w, "filter <in.pgn> <out.pgn> - keep only strong, long games\n")
	io.WriteString(w, "fetch <file> [file...] - download tablebase files from the mirror\n")
	io.WriteString(w, "exit - flush and quit\n")
}
