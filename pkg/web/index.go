package web

var indexHTML = []byte(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Drowsiness Monitor</title>
<style>
body { font-family: sans-serif; background: #111; color: #eee; margin: 2em; }
#banner { font-size: 2em; color: #f33; min-height: 1.2em; }
#metrics span { margin-right: 2em; }
#logs { font-family: monospace; font-size: 0.9em; max-height: 20em; overflow-y: auto; }
img { max-width: 450px; border: 1px solid #333; }
</style>
</head>
<body>
<h1>Drowsiness Monitor</h1>
<div id="banner"></div>
<div id="metrics">
  <span>EAR <b id="ear">-</b></span>
  <span>LIP <b id="lip">-</b></span>
  <span>Eyes <b id="eyes">-</b></span>
  <span>Yawn <b id="yawn">-</b></span>
  <span>FPS <b id="fps">-</b></span>
</div>
<p><img id="camera" alt="camera"></p>
<div id="logs"></div>
<script>
const ws = (path) => new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + path);
const $ = (id) => document.getElementById(id);

ws('/ws/status').onmessage = (ev) => {
  const st = JSON.parse(ev.data), r = st.result || {};
  $('banner').textContent = st.message || '';
  $('ear').textContent = r.face_detected ? r.ear.toFixed(2) + ' (S:' + r.smoothed_ear.toFixed(2) + ')' : '-';
  $('lip').textContent = r.face_detected ? r.lip_distance.toFixed(2) : '-';
  $('eyes').textContent = r.eye_counter + '/' + r.eye_required;
  $('yawn').textContent = r.yawn_counter + '/' + r.yawn_required;
  $('fps').textContent = (st.fps || 0).toFixed(1);
};

const cam = ws('/ws/camera');
cam.binaryType = 'blob';
cam.onmessage = (ev) => {
  const url = URL.createObjectURL(ev.data), img = $('camera');
  img.onload = () => URL.revokeObjectURL(url);
  img.src = url;
};

ws('/ws/logs').onmessage = (ev) => {
  const e = JSON.parse(ev.data), div = document.createElement('div');
  div.textContent = e.time + ' [' + e.type + '] ' + e.message;
  $('logs').prepend(div);
};
</script>
</body>
</html>
`)
