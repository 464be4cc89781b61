package main

import (
	"context"
	"flag"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcapi "ai-script-editor-service/internal/api/grpc"
	"ai-script-editor-service/internal/service/patch"
)

func main() {
	serverAddr := flag.String("server", "localhost:50051", "gRPC server address")
	scriptID := flag.Int64("script", 1, "Script ID")
	text := flag.String("append", "", "Append a block with this text before rendering")
	flag.Parse()

	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Println("Connected to server")

	client := grpcapi.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc, err := client.GetDocument(ctx, &grpcapi.GetDocumentRequest{ScriptID: *scriptID})
	if err != nil {
		log.Fatalf("failed to get document: %v", err)
	}
	log.Printf("Document: version=%d blocks=%d", doc.Version, len(doc.Blocks))

	if *text != "" {
		resp, err := client.ApplyPatch(ctx, &grpcapi.ApplyPatchRequest{
			ScriptID:   *scriptID,
			Operations: []patch.Operation{patch.Create(*text, "")},
		})
		if err != nil {
			log.Fatalf("failed to apply patch: %v", err)
		}
		log.Printf("Patched: version=%d touched=%v skipped=%d", resp.Version, resp.Touched, resp.Skipped)
	}

	markup, err := client.RenderMarkup(ctx, &grpcapi.RenderMarkupRequest{ScriptID: *scriptID, Scope: "document"})
	if err != nil {
		log.Fatalf("failed to render markup: %v", err)
	}
	log.Printf("Fingerprint: %s", markup.Fingerprint)
	log.Println(markup.SSML)
}
