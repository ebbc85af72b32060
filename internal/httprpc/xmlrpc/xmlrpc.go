// Package xmlrpc implements the XML-RPC HTTP adapter (§4.6): each POST
// body is a methodCall document, translated to an si.Info argument list,
// dispatched through a registry.Registry, and translated back to a
// methodResponse document.
package xmlrpc

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/registry"
	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/rpcerr"
	"github.com/synnergy-rpc/synnergy-rpc/internal/si"
)

type methodCall struct {
	XMLName    xml.Name `xml:"methodCall"`
	MethodName string   `xml:"methodName"`
	Params     struct {
		Param []struct {
			Value xmlValue `xml:"value"`
		} `xml:"param"`
	} `xml:"params"`
}

// xmlValue mirrors the XML-RPC <value> element's one-of-many child shape.
type xmlValue struct {
	Int     *string    `xml:"int"`
	I4      *string    `xml:"i4"`
	Boolean *string    `xml:"boolean"`
	Double  *string    `xml:"double"`
	String  *string    `xml:"string"`
	Text    string     `xml:",chardata"`
	Struct  *xmlStruct `xml:"struct"`
	Array   *xmlArray  `xml:"array"`
}

type xmlStruct struct {
	Member []struct {
		Name  string   `xml:"name"`
		Value xmlValue `xml:"value"`
	} `xml:"member"`
}

type xmlArray struct {
	Data struct {
		Value []xmlValue `xml:"value"`
	} `xml:"data"`
}

func (v xmlValue) toInfo() *si.Info {
	n := si.New()
	switch {
	case v.Int != nil:
		i, _ := strconv.ParseInt(strings.TrimSpace(*v.Int), 10, 64)
		n.SetInt(i)
	case v.I4 != nil:
		i, _ := strconv.ParseInt(strings.TrimSpace(*v.I4), 10, 64)
		n.SetInt(i)
	case v.Boolean != nil:
		n.SetBool(strings.TrimSpace(*v.Boolean) == "1")
	case v.Double != nil:
		f, _ := strconv.ParseFloat(strings.TrimSpace(*v.Double), 64)
		n.SetDouble(f)
	case v.String != nil:
		n.SetString(*v.String)
	case v.Struct != nil:
		n.SetObject()
		for _, m := range v.Struct.Member {
			child := m.Value.toInfo()
			child.SetName(m.Name)
			n.AdoptChild(child)
		}
	case v.Array != nil:
		n.SetArray()
		for _, elem := range v.Array.Data.Value {
			n.AdoptChild(elem.toInfo())
		}
	default:
		n.SetString(strings.TrimSpace(v.Text))
	}
	return n
}

// Handler builds an http.Handler dispatching XML-RPC calls against reg.
func Handler(reg *registry.Registry, log *logrus.Entry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeFault(w, -1, "reading body: "+err.Error())
			return
		}
		var call methodCall
		if err := xml.Unmarshal(body, &call); err != nil {
			writeFault(w, -1, "invalid methodCall: "+err.Error())
			return
		}

		args := make([]*si.Info, len(call.Params.Param))
		for idx, p := range call.Params.Param {
			args[idx] = p.Value.toInfo()
		}

		proc, err := reg.Acquire("", call.MethodName)
		if err != nil {
			writeRPCError(w, err)
			return
		}
		defer reg.Release(proc)

		result, err := proc.Call(args)
		if err != nil {
			if log != nil {
				log.WithField("method", call.MethodName).WithError(err).Warn("xml-rpc call failed")
			}
			writeRPCError(w, err)
			return
		}
		writeResult(w, result)
	})
}

func writeRPCError(w http.ResponseWriter, err error) {
	code := int32(-1)
	msg := err.Error()
	if re, ok := err.(*rpcerr.Error); ok {
		msg = re.Message
		if re.Kind == rpcerr.RemoteException {
			code = re.Code
		}
	}
	writeFault(w, code, msg)
}

func writeFault(w http.ResponseWriter, code int32, message string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	fmt.Fprintf(w, `<?xml version="1.0"?>
<methodResponse><fault><value><struct>
<member><name>faultCode</name><value><int>%d</int></value></member>
<member><name>faultString</name><value><string>%s</string></value></member>
</struct></value></fault></methodResponse>`, code, xmlEscape(message))
}

func writeResult(w http.ResponseWriter, result *si.Info) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	fmt.Fprintf(w, `<?xml version="1.0"?>
<methodResponse><params><param><value>%s</value></param></params></methodResponse>`, infoToXML(result))
}

func infoToXML(n *si.Info) string {
	switch n.Category() {
	case si.Void:
		return "<nil/>"
	case si.Value:
		switch n.ValueKind() {
		case si.KindNone:
			return "<nil/>"
		case si.KindBool:
			if n.RawBool() {
				return "<boolean>1</boolean>"
			}
			return "<boolean>0</boolean>"
		case si.KindInt:
			return fmt.Sprintf("<int>%d</int>", n.RawInt())
		case si.KindUint:
			return fmt.Sprintf("<int>%d</int>", n.RawUint())
		case si.KindFloat, si.KindDouble:
			return fmt.Sprintf("<double>%v</double>", n.RawFloat())
		default:
			s, _ := n.AsString()
			return "<string>" + xmlEscape(s) + "</string>"
		}
	case si.Array:
		var b strings.Builder
		b.WriteString("<array><data>")
		for _, c := range n.Children() {
			b.WriteString("<value>")
			b.WriteString(infoToXML(c))
			b.WriteString("</value>")
		}
		b.WriteString("</data></array>")
		return b.String()
	case si.Object:
		var b strings.Builder
		b.WriteString("<struct>")
		for _, c := range n.Children() {
			b.WriteString("<member><name>")
			b.WriteString(xmlEscape(c.Name()))
			b.WriteString("</name><value>")
			b.WriteString(infoToXML(c))
			b.WriteString("</value></member>")
		}
		b.WriteString("</struct>")
		return b.String()
	default:
		return "<nil/>"
	}
}

func xmlEscape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
