package logging

import (
	"bytes"
	"log"
	"net/http"
	"testing"

	apexlog "github.com/apex/log"
	"github.com/m-lab/go/httpx"
	"github.com/m-lab/go/rtx"
)

type fakeHandler struct{}

func (s *fakeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(200)
}

func TestMakeAccessLogHandler(t *testing.T) {
	buff := &bytes.Buffer{}
	old := log.Writer()
	defer func() {
		log.SetOutput(old)
	}()
	log.SetOutput(buff)
	f := MakeAccessLogHandler(&fakeHandler{})
	log.SetOutput(old)
	srv := http.Server{
		Addr:    ":0",
		Handler: f,
	}
	rtx.Must(httpx.ListenAndServeAsync(&srv), "Could not start server")
	defer srv.Close()
	resp, err := http.Get("http://" + srv.Addr + "/v1/datasets")
	rtx.Must(err, "Could not get")
	resp.Body.Close()
	s, _ := buff.ReadString('\n')
	if s == "" {
		t.Error("We should not have had an empty string")
	}
}

func TestSetLevel(t *testing.T) {
	defer func() {
		Logger.Level = apexlog.DebugLevel
	}()
	tests := []struct {
		name    string
		want    apexlog.Level
		wantErr bool
	}{
		{name: "warn", want: apexlog.WarnLevel},
		{name: "error", want: apexlog.ErrorLevel},
		{name: "loud", want: apexlog.ErrorLevel, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SetLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if Logger.Level != tt.want {
				t.Errorf("Logger.Level = %v, want %v", Logger.Level, tt.want)
			}
		})
	}
}
