package downloader

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConsole_LogClearsPendingBar(t *testing.T) {
	out := &syncBuffer{}
	console := NewConsole(out)
	logs := console.LogWriter()

	fmt.Fprint(console, "\rep01.mkv  40% [=====>     ]")
	fmt.Fprint(logs, "INFO\tDownload complete\n")
	fmt.Fprint(console, "\rep02.mkv  10% [=>         ]")

	want := "\rep01.mkv  40% [=====>     ]" + clearLine + "INFO\tDownload complete\n" + "\rep02.mkv  10% [=>         ]"
	if got := out.String(); got != want {
		t.Errorf("console output = %q, want %q", got, want)
	}
}

func TestConsole_NoClearAfterNewline(t *testing.T) {
	out := &syncBuffer{}
	console := NewConsole(out)
	logs := console.LogWriter()

	fmt.Fprint(logs, "first\n")
	fmt.Fprint(console, "\rep01.mkv 100% [==========]\n")
	fmt.Fprint(logs, "second\n")

	if strings.Contains(out.String(), clearLine) {
		t.Errorf("unexpected line clear in %q", out.String())
	}
}

func TestConsole_BarsAndLogsDoNotInterleave(t *testing.T) {
	out := &syncBuffer{}
	console := NewConsole(out)
	reporter := NewTerminalReporter(console, zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(console.LogWriter()),
		zapcore.InfoLevel,
	)))
	reporter.throttle = 0

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task := DownloadTask{
				SourceURL:       fmt.Sprintf("http://archive.test/ep%02d.mkv", i),
				DestinationPath: fmt.Sprintf("/lib/ep%02d.mkv", i),
			}
			reporter.Started(task, TransferProgress{TotalBytes: 4096})
			for written := int64(1024); written <= 4096; written += 1024 {
				reporter.Advanced(task, TransferProgress{BytesWritten: written, TotalBytes: 4096})
			}
			reporter.Finished(task, TransferProgress{BytesWritten: 4096, TotalBytes: 4096}, nil)
		}(i)
	}
	wg.Wait()

	// Every log line starts at column 0: after a newline or a line clear
	text := out.String()
	for offset := 0; ; {
		idx := strings.Index(text[offset:], "Download complete")
		if idx < 0 {
			break
		}
		lineStart := strings.LastIndexAny(text[:offset+idx], "\n\r")
		if lineStart >= 0 && text[lineStart] == '\r' && !strings.HasPrefix(text[lineStart:], clearLine) {
			t.Fatalf("log line written over a bar without clearing it: %q", text)
		}
		offset += idx + len("Download complete")
	}
	if strings.Count(text, "Download complete") != 4 {
		t.Errorf("expected 4 completion lines, got %q", text)
	}
}
